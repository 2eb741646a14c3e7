package mongobanrepo_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/clone-prom-team-2025/server/bans"
)

func TestBanDocumentMapping(t *testing.T) {
	bannedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	until := bannedAt.Add(48 * time.Hour)

	tests := []struct {
		name  string
		until *time.Time
	}{
		{name: "permanent", until: nil},
		{name: "temporary", until: &until},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := bans.Ban{
				ID:          "ban-1",
				UserID:      "user-1",
				AdminID:     "admin-1",
				BannedAt:    bannedAt,
				BannedUntil: tc.until,
				Reason:      "spam",
				Scope:       bans.ScopeLogin | bans.ScopeComment,
			}

			data, err := bson.Marshal(b)
			require.NoError(t, err)

			raw := bson.Raw(data)
			require.Equal(t, "ban-1", raw.Lookup("_id").StringValue())
			require.Equal(t, "admin-1", raw.Lookup("admin_id").StringValue())
			_, err = raw.LookupErr("banned_until")
			if tc.until == nil {
				require.Error(t, err, "a permanent ban has no banned_until field")
			} else {
				require.NoError(t, err)
			}

			var got bans.Ban
			require.NoError(t, bson.Unmarshal(data, &got))
			require.Equal(t, b.ID, got.ID)
			require.Equal(t, b.UserID, got.UserID)
			require.Equal(t, b.Reason, got.Reason)
			require.Equal(t, b.Scope, got.Scope)
			require.True(t, b.BannedAt.Equal(got.BannedAt))
			if tc.until == nil {
				require.Nil(t, got.BannedUntil)
			} else {
				require.NotNil(t, got.BannedUntil)
				require.True(t, tc.until.Equal(*got.BannedUntil))
			}
		})
	}
}
