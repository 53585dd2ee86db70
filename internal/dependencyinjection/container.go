// Package dependencyinjection builds the long-lived services shared by the commands and the HTTP server, creating
// each one at most once per process.
package dependencyinjection

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stellar/go-stellar-sdk/support/log"
)

var (
	dependenciesStore = make(map[string]any)
	// m guards dependenciesStore.
	m sync.Mutex
)

// SetInstance adds a new service instance to the store.
func SetInstance(instanceName string, instance any) {
	m.Lock()
	defer m.Unlock()
	dependenciesStore[instanceName] = instance
}

// GetInstance retrieves a service instance by name from the store.
func GetInstance(instanceName string) (any, bool) {
	m.Lock()
	defer m.Unlock()
	instance, ok := dependenciesStore[instanceName]
	return instance, ok
}

// DeleteAndCloseInstanceByKey removes an instance from the store, closing it when it is an io.Closer.
func DeleteAndCloseInstanceByKey(ctx context.Context, instanceName string) {
	m.Lock()
	instance, ok := dependenciesStore[instanceName]
	delete(dependenciesStore, instanceName)
	m.Unlock()

	if !ok {
		return
	}
	if closer, isCloser := instance.(io.Closer); isCloser {
		if err := closer.Close(); err != nil {
			log.Ctx(ctx).Errorf("error closing instance %s: %v", instanceName, err)
		}
	}
}

// getOrCreate returns the instance stored under instanceName, calling create and storing its result when there is
// none yet.
func getOrCreate[T any](instanceName string, create func() (T, error)) (T, error) {
	var zero T

	if instance, ok := GetInstance(instanceName); ok {
		typed, isT := instance.(T)
		if !isT {
			return zero, fmt.Errorf("trying to cast pre-existing %s for dependency injection", instanceName)
		}
		return typed, nil
	}

	created, err := create()
	if err != nil {
		return zero, err
	}

	SetInstance(instanceName, created)
	return created, nil
}
