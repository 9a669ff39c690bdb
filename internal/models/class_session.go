package models

import (
	"time"

	"github.com/noah-isme/sma-class-scheduler/pkg/scheduling"
)

// SessionKind mirrors the persistable generated session types.
type SessionKind string

const (
	SessionKindNormal   SessionKind = "NORMAL"
	SessionKindExtended SessionKind = "EXTENDED"
)

// ClassSession is a stored calendar occurrence of a class.
type ClassSession struct {
	ID             string      `db:"id" json:"id"`
	ClassID        string      `db:"class_id" json:"class_id"`
	InstructorID   string      `db:"instructor_id" json:"instructor_id"`
	TimeslotID     string      `db:"timeslot_id" json:"timeslot_id"`
	SessionDate    time.Time   `db:"session_date" json:"session_date"`
	SequenceNumber int         `db:"sequence_number" json:"sequence_number"`
	Kind           SessionKind `db:"kind" json:"kind"`
	Title          string      `db:"title" json:"title"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
}

// Ref reduces the session to its diff identity.
func (s ClassSession) Ref() scheduling.SessionRef {
	return scheduling.SessionRef{SessionID: s.ID, Date: scheduling.DateOf(s.SessionDate), TimeslotID: s.TimeslotID}
}

// SessionRefs converts stored sessions into diff keys.
func SessionRefs(list []ClassSession) []scheduling.SessionRef {
	refs := make([]scheduling.SessionRef, 0, len(list))
	for _, item := range list {
		refs = append(refs, item.Ref())
	}
	return refs
}
