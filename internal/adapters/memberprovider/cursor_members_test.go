package memberprovider_test

import (
	"context"
	"testing"

	"github.com/leikvolle/seatwatch/internal/adapters/memberprovider"
	"github.com/leikvolle/seatwatch/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestParseTeamMembersResponse(t *testing.T) {
	t.Parallel()

	t.Run("parses members and normalizes fields", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{"teamMembers":[
			{"name":" Alice ","email":"Alice@Example.com","role":"Member"},
			{"name":"Bob","email":"bob@example.com","role":"owner"},
			{"name":"Billing","email":"billing@example.com","role":"free-owner"}
		]}`)

		members, err := memberprovider.ParseTeamMembersResponse(context.Background(), data, 200)
		require.NoError(t, err)
		require.Equal(t, []domain.TeamMember{
			{Email: "alice@example.com", Name: "Alice", Role: "member"},
			{Email: "bob@example.com", Name: "Bob", Role: "owner"},
			{Email: "billing@example.com", Name: "Billing", Role: "free-owner"},
		}, members)

		nonOwners := domain.NonOwners(members)
		require.Len(t, nonOwners, 1)
		require.Equal(t, "alice@example.com", nonOwners[0].Email)
	})

	t.Run("members without email are skipped", func(t *testing.T) {
		t.Parallel()
		data := []byte(`{"teamMembers":[{"name":"Nameless","email":"","role":"member"}]}`)

		members, err := memberprovider.ParseTeamMembersResponse(context.Background(), data, 200)
		require.NoError(t, err)
		require.Empty(t, members)
	})

	t.Run("rate limited", func(t *testing.T) {
		t.Parallel()
		_, err := memberprovider.ParseTeamMembersResponse(context.Background(), []byte(`{}`), 429)
		require.ErrorIs(t, err, domain.ErrRatelimitExceeded)
	})

	t.Run("server error", func(t *testing.T) {
		t.Parallel()
		_, err := memberprovider.ParseTeamMembersResponse(context.Background(), []byte(`{}`), 503)
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
	})

	t.Run("unexpected status", func(t *testing.T) {
		t.Parallel()
		_, err := memberprovider.ParseTeamMembersResponse(context.Background(), []byte(`{}`), 401)
		require.Error(t, err)
		require.NotErrorIs(t, err, domain.ErrTemporarilyUnavailable)
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := memberprovider.ParseTeamMembersResponse(context.Background(), []byte(`{"teamMembers":`), 200)
		require.ErrorIs(t, err, domain.ErrTemporarilyUnavailable)
	})
}
