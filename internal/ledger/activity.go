package ledger

import (
	"time"

	"github.com/mmynk/expensekey/internal/models"
)

// recorder appends audit entries to a working store during one commit.
// All entries of a commit share its timestamp and get consecutive ids.
type recorder struct {
	st       *store
	at       time.Time
	recorded []models.ActivityEntry
}

func newRecorder(st *store, at time.Time) *recorder {
	return &recorder{st: st, at: at}
}

// record stamps and prepends an entry for actorID.
// The actor is copied, so later profile edits leave the entry untouched.
func (r *recorder) record(actorID, text string) (models.ActivityEntry, error) {
	actor, ok := r.st.member(actorID)
	if !ok {
		return models.ActivityEntry{}, notFound("record", "actor %s not found", actorID)
	}
	entry := models.ActivityEntry{
		ID:        r.st.nextActivityID,
		Text:      text,
		Timestamp: r.at,
		Actor:     actor.Snapshot(),
	}
	r.st.appendActivity(entry)
	r.recorded = append(r.recorded, entry)
	return entry, nil
}
