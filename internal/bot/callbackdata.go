package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"newsbot/internal/models"
)

// Callback data prefixes
const (
	cbApprove         = "approve"
	cbReject          = "reject"
	cbRequestEvidence = "request_evidence"
	cbSelectAction    = "select_action"
	cbConfirmPayment  = "moderator_confirm_payment"
	cbRejectPayment   = "moderator_reject_payment"
)

var errBadCallback = errors.New("malformed callback data")

// paymentRef is the requester/target/action triad carried by payment buttons
type paymentRef struct {
	RequesterID int64
	MsgID       int
	Action      models.PaymentAction
}

func postData(prefix string, postID int64) string {
	return prefix + ":" + strconv.FormatInt(postID, 10)
}

func paymentData(prefix string, ref paymentRef) string {
	return fmt.Sprintf("%s:%d:%d:%s", prefix, ref.RequesterID, ref.MsgID, ref.Action)
}

// callbackPrefix returns the part of the data before the first colon
func callbackPrefix(data string) string {
	prefix, _, _ := strings.Cut(data, ":")
	return prefix
}

// parsePostData parses "<prefix>:<post id>"
func parsePostData(data string) (int64, error) {
	_, raw, ok := strings.Cut(data, ":")
	if !ok {
		return 0, errBadCallback
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadCallback
	}
	return id, nil
}

// parsePaymentData parses "<prefix>:<requester>:<message id>:<action>"
func parsePaymentData(data string) (paymentRef, error) {
	parts := strings.SplitN(data, ":", 4)
	if len(parts) != 4 {
		return paymentRef{}, errBadCallback
	}
	requester, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return paymentRef{}, errBadCallback
	}
	msgID, err := strconv.Atoi(parts[2])
	if err != nil || msgID <= 0 {
		return paymentRef{}, errBadCallback
	}
	action := models.PaymentAction(parts[3])
	if !action.Valid() {
		return paymentRef{}, errBadCallback
	}
	return paymentRef{RequesterID: requester, MsgID: msgID, Action: action}, nil
}
