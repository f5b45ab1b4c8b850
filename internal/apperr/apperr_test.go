package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCode(t *testing.T) {
	req := require.New(t)

	cases := []struct {
		err  error
		code string
	}{
		{nil, ""},
		{ErrInvalidRecipient, CodeInvalidRecipient},
		{fmt.Errorf("record seen: %w", ErrDeliveryPrecondition), CodeDeliveryPrecondition},
		{fmt.Errorf("find chat 42: %w", ErrNotFound), CodeNotFound},
		{fmt.Errorf("%w: append delivered: timeout", ErrPersistence), CodePersistence},
		{fmt.Errorf("decode send-message: %w", ErrInvalidPayload), CodeInvalidPayload},
		{errors.New("boom"), CodeInternal},
	}

	for _, c := range cases {
		req.Equal(c.code, Code(c.err), "error %v", c.err)
	}
}
