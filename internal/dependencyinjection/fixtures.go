package dependencyinjection

import "testing"

func ClearInstancesTestHelper(t *testing.T) {
	t.Helper()

	m.Lock()
	defer m.Unlock()
	clear(dependenciesStore)
}
