package audit

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Action is a machine name of an audited event
type Action string

const (
	ActionStart              Action = "start"
	ActionAskSendPost        Action = "ask_send_post"
	ActionPostSubmitted      Action = "post_submitted"
	ActionProofSent          Action = "proof_sent_to_mods"
	ActionPostApproved       Action = "post_approved"
	ActionPostRejected       Action = "post_rejected"
	ActionPublishFailed      Action = "post_publish_failed"
	ActionEvidenceRequested  Action = "evidence_requested"
	ActionEvidenceSent       Action = "evidence_sent_to_mods"
	ActionAskInfo            Action = "ask_info_start"
	ActionAskDelete          Action = "ask_delete_start"
	ActionUserSentLink       Action = "user_sent_link"
	ActionPostNotFound       Action = "select_action_post_not_found"
	ActionPaymentRequested   Action = "payment_requested"
	ActionConfirmInfoSent    Action = "mod_confirm_info_sent"
	ActionConfirmDeleted     Action = "mod_confirm_deleted"
	ActionConfirmNotFound    Action = "mod_confirm_post_not_found"
	ActionPaymentRejected    Action = "mod_rejected_payment"
	ActionDeleteFailed       Action = "mod_delete_failed"
	ActionDeleteRecordFailed Action = "mod_delete_record_failed"
	ActionPhoneShared        Action = "phone_shared"
)

var labels = map[Action]string{
	ActionStart:              "Початок роботи з ботом",
	ActionAskSendPost:        "Користувач хоче відправити пост",
	ActionPostSubmitted:      "Пост відправлено на модерацію",
	ActionProofSent:          "Доказ оплати відправлено модераторам",
	ActionPostApproved:       "Пост схвалено модератором",
	ActionPostRejected:       "Пост відхилено модератором",
	ActionPublishFailed:      "Не вдалося опублікувати пост",
	ActionEvidenceRequested:  "Модератор запросив докази",
	ActionEvidenceSent:       "Докази відправлено модераторам",
	ActionAskInfo:            "Користувач хоче дізнатись чий пост",
	ActionAskDelete:          "Користувач хоче видалити пост",
	ActionUserSentLink:       "Користувач надіслав посилання на пост",
	ActionPostNotFound:       "Пост не знайдено в базі",
	ActionPaymentRequested:   "Користувачу надіслано інструкцію для оплати",
	ActionConfirmInfoSent:    "Модератор підтвердив оплату і відправив інформацію користувачу",
	ActionConfirmDeleted:     "Модератор підтвердив оплату і видалив пост",
	ActionConfirmNotFound:    "Модератор підтвердив оплату, але пост не знайдено",
	ActionPaymentRejected:    "Модератор відхилив доказ оплати",
	ActionDeleteFailed:       "Не вдалося видалити пост",
	ActionDeleteRecordFailed: "Пост видалено з каналу, але запис у базі залишився",
	ActionPhoneShared:        "Користувач поділився номером телефону",
}

// Label returns the human-readable label of an action, or its machine name when unknown
func Label(a Action) string {
	if l, ok := labels[a]; ok {
		return l
	}
	return string(a)
}

// TimeLayout is the timestamp layout of the first column
const TimeLayout = "2006-01-02 15:04:05"

var header = []string{"час", "модератор", "користувач", "дія", "додаткова_інформація"}

// Entry is one audited event
type Entry struct {
	Action    Action
	Moderator string
	User      string
	Extra     string
}

// Log appends audit rows to a CSV file
type Log struct {
	mu     sync.Mutex
	path   string
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// Open prepares the log, writing the header row when the file does not exist yet
func Open(path string, loc *time.Location, logger *zap.Logger) (*Log, error) {
	if loc == nil {
		loc = time.UTC
	}
	l := &Log{path: path, loc: loc, now: time.Now, logger: logger}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := l.append(header); err != nil {
			return nil, fmt.Errorf("failed to create audit log: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat audit log: %w", err)
	}
	return l, nil
}

// Record appends an entry. Failures are logged and dropped.
func (l *Log) Record(e Entry) {
	if l == nil {
		return
	}
	if e.Moderator == "" {
		e.Moderator = "-"
	}
	if e.User == "" {
		e.User = "-"
	}

	l.logger.Info("Audit",
		zap.String("action", string(e.Action)),
		zap.String("moderator", e.Moderator),
		zap.String("user", e.User),
		zap.String("extra", e.Extra),
	)

	row := []string{l.now().In(l.loc).Format(TimeLayout), e.Moderator, e.User, Label(e.Action), e.Extra}
	if err := l.append(row); err != nil {
		l.logger.Error("Failed to write audit row",
			zap.Error(err),
			zap.String("action", string(e.Action)),
		)
	}
}

func (l *Log) append(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
