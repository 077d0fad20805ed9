// Package moderation defines the events carried on the audits and reports
// channels, the producer-side publisher, and the consumers that turn those
// events into chat-webhook notifications.
package moderation

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"hatch/pkg/domain"
)

type AuditCategory uint8

const (
	AuditMod AuditCategory = iota
	AuditUser
)

func (c AuditCategory) titleSuffix() (string, bool) {
	switch c {
	case AuditMod:
		return " did a mod action", true
	case AuditUser:
		return " did a user action", true
	default:
		return "", false
	}
}

// ActionAccountDeletion marks an audit that, when consumed, purges the
// culprit's account.
const ActionAccountDeletion = "account_deletion"

// AuditEvent records something a user or moderator did.
type AuditEvent struct {
	Culprit     domain.UserID `msgpack:"culprit"`
	Category    AuditCategory `msgpack:"category"`
	Description string        `msgpack:"description"`
	Action      string        `msgpack:"action,omitempty"`
}

type Location uint8

const (
	LocationProject Location = 0
	LocationUser    Location = 2
	LocationComment Location = 3
)

func (l Location) String() string {
	switch l {
	case LocationProject:
		return "project"
	case LocationUser:
		return "user"
	case LocationComment:
		return "comment"
	default:
		return "location(" + strconv.Itoa(int(l)) + ")"
	}
}

type ReportCategory uint8

var reportCategoryText = [...]string{
	"Inappropriate or graphic",
	"Copyrighted or stolen material",
	"Harassment or bullying",
	"Spam",
	"Malicious links (such as malware)",
}

// Text returns the English label for c.
func (c ReportCategory) Text() (string, bool) {
	if int(c) >= len(reportCategoryText) {
		return "", false
	}
	return reportCategoryText[c], true
}

var ErrInvalidReportCategory = errors.New("invalid report category")

// ReportEvent is a user's report against a project, user, or comment.
// Construct it with NewReportEvent.
type ReportEvent struct {
	Reporter   domain.UserID  `msgpack:"reportee"`
	Category   ReportCategory `msgpack:"category"`
	Reason     string         `msgpack:"reason"`
	ResourceID ResourceID     `msgpack:"resource_id"`
	Location   Location       `msgpack:"location"`
}

// NewReportEvent validates category before any event exists, so an unmapped
// code never reaches the bus.
func NewReportEvent(reporter domain.UserID, category int, reason string, resource ResourceID, loc Location) (ReportEvent, error) {
	if category < 0 || category >= len(reportCategoryText) {
		return ReportEvent{}, fmt.Errorf("%w: %d", ErrInvalidReportCategory, category)
	}
	return ReportEvent{
		Reporter:   reporter,
		Category:   ReportCategory(category),
		Reason:     reason,
		ResourceID: resource,
		Location:   loc,
	}, nil
}

// ResourceID identifies a reported resource: a numeric id for projects and
// comments, a username for users. It encodes as a bare msgpack uint or str.
type ResourceID struct {
	num     uint64
	name    string
	numeric bool
}

func NumericResource(id uint64) ResourceID {
	return ResourceID{num: id, numeric: true}
}

func NamedResource(name string) ResourceID {
	return ResourceID{name: name}
}

func (r ResourceID) IsNumeric() bool { return r.numeric }

func (r ResourceID) String() string {
	if r.numeric {
		return strconv.FormatUint(r.num, 10)
	}
	return r.name
}

func (r ResourceID) EncodeMsgpack(enc *msgpack.Encoder) error {
	if r.numeric {
		return enc.EncodeUint(r.num)
	}
	return enc.EncodeString(r.name)
}

func (r *ResourceID) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := dec.DecodeInterfaceLoose()
	if err != nil {
		return err
	}
	switch v := v.(type) {
	case uint64:
		*r = NumericResource(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("negative resource id %d", v)
		}
		*r = NumericResource(uint64(v))
	case string:
		*r = NamedResource(v)
	default:
		return fmt.Errorf("unsupported resource id type %T", v)
	}
	return nil
}
