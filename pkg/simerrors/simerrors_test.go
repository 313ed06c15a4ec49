package simerrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vzdtic/minispark/pkg/simerrors"
)

func TestTaskFailureUnwrapsToCause(t *testing.T) {
	cause := errors.New("boom")
	tf := simerrors.NewTaskFailure("t1", cause)

	assert.ErrorIs(t, tf, cause)
	assert.Contains(t, tf.Error(), "t1")
	assert.Contains(t, tf.Error(), "boom")
}

func TestStageFailureUnwrapsToCause(t *testing.T) {
	sf := simerrors.NewStageFailure("s1", "t1", simerrors.ErrWorkerOverloaded)

	assert.ErrorIs(t, sf, simerrors.ErrWorkerOverloaded)
	assert.Contains(t, sf.Error(), "s1")
	assert.Contains(t, sf.Error(), "t1")
}
