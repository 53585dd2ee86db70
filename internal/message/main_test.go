package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParseMessengerType(t *testing.T) {
	for _, mt := range MessengerType("").All() {
		got, err := ParseMessengerType(string(mt))
		require.NoError(t, err)
		assert.Equal(t, mt, got)
	}

	got, err := ParseMessengerType(" dry_run ")
	require.NoError(t, err)
	assert.Equal(t, MessengerTypeDryRun, got)

	_, err = ParseMessengerType("TWILIO_SMS")
	assert.EqualError(t, err, `invalid message sender type "TWILIO_SMS"`)
}

func Test_GetClient(t *testing.T) {
	client, err := GetClient(MessengerOptions{MessengerType: MessengerTypeDryRun})
	require.NoError(t, err)
	assert.Equal(t, MessengerTypeDryRun, client.MessengerType())

	client, err = GetClient(MessengerOptions{
		MessengerType:               MessengerTypeTwilioEmail,
		TwilioSendGridAPIKey:        "SG.key",
		TwilioSendGridSenderAddress: "noreply@crm.test",
	})
	require.NoError(t, err)
	assert.Equal(t, MessengerTypeTwilioEmail, client.MessengerType())

	client, err = GetClient(MessengerOptions{
		MessengerType:      MessengerTypeAWSEmail,
		AWSAccessKeyID:     "accessKeyID",
		AWSSecretAccessKey: "secretAccessKey",
		AWSRegion:          "us-east-1",
		AWSSESSenderID:     "noreply@crm.test",
	})
	require.NoError(t, err)
	assert.Equal(t, MessengerTypeAWSEmail, client.MessengerType())

	_, err = GetClient(MessengerOptions{MessengerType: "PIGEON"})
	assert.EqualError(t, err, `unknown message sender type: "PIGEON"`)
}

func Test_Message_Validate(t *testing.T) {
	m := Message{}
	assert.EqualError(t, m.Validate(), "invalid message: email cannot be empty")

	m = Message{ToEmail: "ada@acme.com"}
	assert.EqualError(t, m.Validate(), "title is empty")

	m = Message{ToEmail: "ada@acme.com", Title: "Welcome", Body: " "}
	assert.EqualError(t, m.Validate(), "body is empty")

	m = Message{ToEmail: "ada@acme.com", Title: "Welcome", Body: "<p>hi</p>"}
	assert.NoError(t, m.Validate())
}
