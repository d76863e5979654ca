package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/cairn/pkg/schema"
)

func TestValidate(t *testing.T) {
	t.Run("Valid Snapshot", func(t *testing.T) {
		assert.NoError(t, schema.Validate(sampleSnapshot()))
	})

	t.Run("Future Version", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Version = schema.Version + 1

		err := schema.Validate(snap)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported version")
	})

	t.Run("Missing Version", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Version = 0
		assert.Error(t, schema.Validate(snap))
	})

	t.Run("Aggregates All Failures", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Weights[0].From = ""
		snap.Weights[0].Weight = -1
		snap.Weights[1].Actor = "alien"

		err := schema.Validate(snap)
		require.Error(t, err)

		errs := schema.ValidationErrors(err)
		assert.Len(t, errs, 3)
	})

	t.Run("Empty Actor Is Allowed", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Weights[0].Actor = ""
		assert.NoError(t, schema.Validate(snap))
	})
}
