package refinery_test

import (
	"testing"

	"github.com/fwojciec/refinery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRecord_GetSet(t *testing.T) {
	t.Parallel()

	rec := &refinery.EventRecord{}
	for _, f := range refinery.Fields {
		rec.Set(f, refinery.String("v-"+f))
	}
	for _, f := range refinery.Fields {
		require.NotNil(t, rec.Get(f))
		assert.Equal(t, "v-"+f, *rec.Get(f))
	}
	assert.Equal(t, refinery.Fields, rec.Populated())

	rec.Set(refinery.FieldPrice, refinery.String(""))
	assert.False(t, rec.Has(refinery.FieldPrice))
	assert.Nil(t, rec.Get("unknown"))
}

func TestEventRecord_Clone(t *testing.T) {
	t.Parallel()

	rec := &refinery.EventRecord{Title: refinery.String("A")}
	clone := rec.Clone()
	*clone.Title = "B"

	assert.Equal(t, "A", *rec.Title)

	var nilRec *refinery.EventRecord
	assert.NotNil(t, nilRec.Clone())
	assert.Empty(t, nilRec.Populated())
}

func TestRunOptions_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, refinery.DefaultRunOptions().Validate())

	opts := refinery.DefaultRunOptions()
	opts.MaxIterations = 0
	assert.Equal(t, refinery.EINVALID, refinery.ErrorCode(opts.Validate()))

	opts = refinery.DefaultRunOptions()
	opts.MaxCalls = -1
	assert.Equal(t, refinery.EINVALID, refinery.ErrorCode(opts.Validate()))
}
