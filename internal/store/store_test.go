package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStores_Validate(t *testing.T) {
	err := Stores{}.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "all stores")
}
