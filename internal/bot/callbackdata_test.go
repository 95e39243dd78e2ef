package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsbot/internal/models"
)

func TestCallbackPrefix(t *testing.T) {
	assert.Equal(t, cbApprove, callbackPrefix("approve:12"))
	assert.Equal(t, cbConfirmPayment, callbackPrefix("moderator_confirm_payment:1:2:info"))
	assert.Equal(t, "noop", callbackPrefix("noop"))
	assert.Equal(t, "", callbackPrefix(""))
}

func TestParsePostData(t *testing.T) {
	tests := []struct {
		data    string
		want    int64
		wantErr bool
	}{
		{data: "approve:12", want: 12},
		{data: "request_evidence:1", want: 1},
		{data: "approve", wantErr: true},
		{data: "approve:", wantErr: true},
		{data: "approve:x", wantErr: true},
		{data: "approve:0", wantErr: true},
		{data: "approve:-3", wantErr: true},
		{data: "approve:1:2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := parsePostData(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadCallback)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePaymentData(t *testing.T) {
	tests := []struct {
		data    string
		want    paymentRef
		wantErr bool
	}{
		{
			data: "select_action:777:123:info",
			want: paymentRef{RequesterID: 777, MsgID: 123, Action: models.ActionInfo},
		},
		{
			data: "moderator_reject_payment:5:9:delete",
			want: paymentRef{RequesterID: 5, MsgID: 9, Action: models.ActionDelete},
		},
		{data: "select_action:777:123", wantErr: true},
		{data: "select_action:abc:123:info", wantErr: true},
		{data: "select_action:777:abc:info", wantErr: true},
		{data: "select_action:777:0:info", wantErr: true},
		{data: "select_action:777:123:publish", wantErr: true},
		{data: "select_action:777:123:info:extra", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, err := parsePaymentData(tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadCallback)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackDataRoundTrip(t *testing.T) {
	ref := paymentRef{RequesterID: 42, MsgID: 314, Action: models.ActionDelete}
	got, err := parsePaymentData(paymentData(cbConfirmPayment, ref))
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	id, err := parsePostData(postData(cbReject, 8))
	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
}
