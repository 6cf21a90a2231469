package workflows

import (
	"context"
	"log"
	"time"

	"kontur-content-bot/internal/content"
	"kontur-content-bot/internal/database/models"

	"github.com/google/uuid"
)

// logEdits stores the edit history of a successful commit.
func (m *Manager) logEdits(ctx context.Context, t *turn, res content.CommitResult) {
	if !res.Saved || len(res.History) == 0 {
		return
	}
	commitID := uuid.NewString()
	savedAt := m.now()
	entries := make([]models.EditLog, 0, len(res.History))
	for _, h := range res.History {
		entries = append(entries, models.EditLog{
			CommitID:  commitID,
			ChatID:    t.chatID,
			AccountID: t.sess.AccountID,
			ItemKind:  string(res.Ref.Kind),
			ItemID:    res.Ref.ID,
			Field:     string(h.Field),
			OldValue:  h.Old,
			NewValue:  h.New,
			EditedAt:  h.At,
			SavedAt:   savedAt,
		})
	}
	if err := m.audit.LogEdits(ctx, entries); err != nil {
		log.Printf("%s Error logging %d edits of %s %d: %v", t.logPrefix(), len(entries), res.Ref.Kind, res.Ref.ID, err)
	}
}

// logTransition stores the outcome of a terminal action.
func (m *Manager) logTransition(ctx context.Context, t *turn, ref content.ItemRef, action content.Action, comment string, saved bool, actionErr error) {
	entry := models.TransitionLog{
		ChatID:    t.chatID,
		AccountID: t.sess.AccountID,
		ItemKind:  string(ref.Kind),
		ItemID:    ref.ID,
		Action:    string(action),
		Comment:   comment,
		Saved:     saved,
		Succeeded: actionErr == nil,
		At:        m.now().UTC().Truncate(time.Millisecond),
	}
	if actionErr != nil {
		entry.Error = actionErr.Error()
	}
	if err := m.audit.LogTransition(ctx, entry); err != nil {
		log.Printf("%s Error logging %s of %s %d: %v", t.logPrefix(), action, ref.Kind, ref.ID, err)
	}
}
