package directory

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/testutil"
)

var t0 = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newDirectory(t *testing.T, backend *testutil.Backend, token string) *Directory {
	t.Helper()
	srv := backend.Start(t)
	client, err := NewClient(ClientConfig{BaseURL: srv.URL + "/", Token: token, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return New(client, "Technical", zerolog.Nop())
}

func fixtureQueries() []model.Query {
	return []model.Query{
		{ID: "q1", Message: "vpn broken", Tags: []string{"Technical"}, SubmittedAt: t0},
		{ID: "q2", Message: "refund", Tags: []string{"Billing"}, SubmittedAt: t0, Status: model.StatusResolved},
		{ID: "q3", Message: "both", Tags: []string{"Billing", "Technical"}, SubmittedAt: t0, Priority: model.PriorityHigh},
		{ID: "q4", Message: "untagged", SubmittedAt: t0},
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientConfig{})
	assert.Error(t, err)
}

func TestFetchUserSeesEverythingNormalized(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Queries = fixtureQueries()
	dir := newDirectory(t, backend, "")

	queries, err := dir.Fetch(context.Background(), model.ActorUser)
	require.NoError(t, err)
	require.Len(t, queries, 4)
	assert.Equal(t, model.StatusPending, queries[0].Status)
	assert.Equal(t, model.PriorityNormal, queries[0].Priority)
	assert.Equal(t, model.StatusResolved, queries[1].Status)
	assert.Equal(t, model.PriorityHigh, queries[2].Priority)
}

func TestFetchStaffFiltersByRoleTag(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Queries = fixtureQueries()
	dir := newDirectory(t, backend, "")

	queries, err := dir.Fetch(context.Background(), model.ActorStaff)
	require.NoError(t, err)

	var ids []string
	for _, q := range queries {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"q1", "q3"}, ids)
}

func TestFetchStaffReadsBlankTagsAsGeneral(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Queries = []model.Query{
		{ID: "q1", Message: "blank tag", Tags: []string{""}, SubmittedAt: t0},
		{ID: "q2", Message: "untagged", SubmittedAt: t0},
		{ID: "q3", Message: "billing", Tags: []string{"Billing"}, SubmittedAt: t0},
	}
	srv := backend.Start(t)
	client, err := NewClient(ClientConfig{BaseURL: srv.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)
	dir := New(client, model.DefaultTag, zerolog.Nop())

	queries, err := dir.Fetch(context.Background(), model.ActorStaff)
	require.NoError(t, err)
	var ids []string
	for _, q := range queries {
		ids = append(ids, q.ID)
	}
	assert.Equal(t, []string{"q1", "q2"}, ids)
}

func TestFetchEmptyListIsNotNil(t *testing.T) {
	dir := newDirectory(t, testutil.NewBackend(), "")

	queries, err := dir.Fetch(context.Background(), model.ActorStaff)
	require.NoError(t, err)
	assert.NotNil(t, queries)
	assert.Empty(t, queries)
}

func TestFetchErrorKinds(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		backend := testutil.NewBackend()
		backend.Token = "good"
		dir := newDirectory(t, backend, "bad")

		_, err := dir.Fetch(context.Background(), model.ActorUser)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindAuth))
		assert.Contains(t, err.Error(), "not logged in")
	})

	t.Run("server failure", func(t *testing.T) {
		backend := testutil.NewBackend()
		backend.FailStatus = http.StatusBadGateway
		dir := newDirectory(t, backend, "")

		_, err := dir.Fetch(context.Background(), model.ActorUser)
		var dirErr *Error
		require.ErrorAs(t, err, &dirErr)
		assert.Equal(t, KindNetwork, dirErr.Kind)
		assert.Equal(t, http.StatusBadGateway, dirErr.Status)
		assert.Equal(t, "backend unavailable", dirErr.Message)
	})

	t.Run("unreachable", func(t *testing.T) {
		client, err := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second, Logger: zerolog.Nop()})
		require.NoError(t, err)

		_, err = New(client, "Technical", zerolog.Nop()).Fetch(context.Background(), model.ActorUser)
		assert.True(t, IsKind(err, KindNetwork))
	})
}

func TestBearerTokenIsSent(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Token = "tok-123"
	backend.Queries = fixtureQueries()
	dir := newDirectory(t, backend, "tok-123")

	_, err := dir.Fetch(context.Background(), model.ActorUser)
	assert.NoError(t, err)
}

func TestLoginStoresToken(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Token = "issued"
	backend.Identity = model.Identity{UserName: "ann", Role: model.ActorUser}
	dir := newDirectory(t, backend, "")

	_, err := dir.Client().Login(context.Background(), "ann@example.com", "wrong")
	assert.True(t, IsKind(err, KindAuth))

	resp, err := dir.Client().Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ann", resp.UserName)
	assert.Equal(t, "issued", dir.Client().Token())

	me, err := dir.Client().Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ann", me.UserName)
}

func TestRegister(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Users = []model.User{{UserName: "ann", Email: "ann@example.com"}}
	dir := newDirectory(t, backend, "")

	err := dir.Client().Register(context.Background(), model.RegisterRequest{UserName: "ann", Email: "", Password: "x"})
	assert.True(t, IsKind(err, KindValidation))
	assert.Zero(t, backend.Requests("/api/users/register"))

	err = dir.Client().Register(context.Background(), model.RegisterRequest{UserName: "ann", Email: "ANN@example.com", Password: "x"})
	var dirErr *Error
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, "user already exists", dirErr.Message)

	assert.NoError(t, dir.Client().Register(context.Background(),
		model.RegisterRequest{UserName: "bob", Email: "bob@example.com", Password: "x"}))
}

func TestSubmitValidatesBeforeNetwork(t *testing.T) {
	backend := testutil.NewBackend()
	dir := newDirectory(t, backend, "")

	cases := []struct {
		name       string
		categories []string
		message    string
		want       string
	}{
		{"no categories", nil, "help", ErrMissingFields},
		{"blank message", []string{"Technical Issue"}, "   ", ErrMissingFields},
		{"unknown category", []string{"Gardening"}, "help", "unknown category"},
		{"too long", []string{"Technical Issue"}, strings.Repeat("x", model.MaxQueryMessageLength+1), "longer than"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := dir.Submit(context.Background(), tc.categories, tc.message)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindValidation))
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.Zero(t, backend.Requests("/api/users/add-query"))
}

func TestSubmitSendsCleanedRequest(t *testing.T) {
	backend := testutil.NewBackend()
	dir := newDirectory(t, backend, "")

	err := dir.Submit(context.Background(), []string{" Payment Issue", "Payment Issue", "", "Account Problem"}, "  charged twice ")
	require.NoError(t, err)

	assert.Equal(t, []model.AddQueryRequest{{
		Categories: []string{"Payment Issue", "Account Problem"},
		Message:    "charged twice",
	}}, backend.Submitted())
}

func TestAllUsers(t *testing.T) {
	backend := testutil.NewBackend()
	backend.Users = []model.User{{ID: "u1", UserName: "ann"}, {ID: "u2", UserName: "bob"}}
	dir := newDirectory(t, backend, "")

	users, err := dir.Client().AllUsers(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindNetwork, Op: "my-queries", Status: 500, Message: "boom"}
	assert.Equal(t, "directory: my-queries: network (500): boom", err.Error())
	assert.Equal(t, "validation", KindValidation.String())
}
