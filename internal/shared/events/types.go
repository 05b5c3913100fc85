// Package events names the change events the election engine produces.
// Outbox rows and bus messages carry a ports.EventEnvelope keyed by one of
// these types.
package events

const (
	TypeElectionCreated   = "election.created"
	TypeElectionUpdated   = "election.updated"
	TypeElectionStarted   = "election.started"
	TypeElectionCompleted = "election.completed"
	TypeElectionDeleted   = "election.deleted"
	TypeVoteRecorded      = "election.vote_recorded"
)
