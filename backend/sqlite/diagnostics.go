package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cschleiden/go-dialogflow/core"
	"github.com/cschleiden/go-dialogflow/diag"
)

var _ diag.Backend = (*sqliteBackend)(nil)

func (sb *sqliteBackend) GetConversations(ctx context.Context, afterConversationID string, count int) ([]*diag.ConversationRef, error) {
	var rows *sql.Rows
	var err error
	if afterConversationID != "" {
		rows, err = sb.db.QueryContext(
			ctx,
			`SELECT c.id, c.version, c.dialog_stack, c.created_at, c.updated_at
			FROM conversations c
			INNER JOIN (SELECT id, created_at FROM conversations WHERE id = ?) cc
				ON c.created_at < cc.created_at OR (c.created_at = cc.created_at AND c.id < cc.id)
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT ?`,
			afterConversationID,
			count,
		)
	} else {
		rows, err = sb.db.QueryContext(
			ctx,
			`SELECT c.id, c.version, c.dialog_stack, c.created_at, c.updated_at
			FROM conversations c
			ORDER BY c.created_at DESC, c.id DESC
			LIMIT ?`,
			count,
		)
	}
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var refs []*diag.ConversationRef

	for rows.Next() {
		state := &core.ConversationState{}
		var stack []byte
		if err := rows.Scan(&state.ConversationID, &state.Version, &stack, &state.CreatedAt, &state.UpdatedAt); err != nil {
			return nil, err
		}

		if err := sb.options.Converter.From(stack, &state.DialogStack); err != nil {
			return nil, fmt.Errorf("decoding dialog stack of %q: %w", state.ConversationID, err)
		}

		refs = append(refs, diag.NewConversationRef(state))
	}

	return refs, rows.Err()
}
