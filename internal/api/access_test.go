package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/serroba/rich-docs/internal/acl"
	"github.com/serroba/rich-docs/internal/api"
	"github.com/serroba/rich-docs/internal/ws"
)

// createAs creates doc1 through the API so that owner holds the Owner role.
func createAs(t *testing.T, ts *testServer, owner string) {
	t.Helper()

	rec := ts.doAs(owner, http.MethodPost, "/documents", `{"id":"doc1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAccess_CreatorOwnsDocument(t *testing.T) {
	t.Parallel()

	ts := newACLTestServer(t)
	createAs(t, ts, "alice")

	role, err := ts.perms.GetRole("doc1", "alice")
	require.NoError(t, err)
	require.Equal(t, acl.Owner, role)

	require.Equal(t, http.StatusOK, ts.doAs("alice", http.MethodGet, "/documents/doc1", "").Code)
	require.Equal(t, http.StatusForbidden, ts.doAs("mallory", http.MethodGet, "/documents/doc1", "").Code)
}

func TestAccess_Delete(t *testing.T) {
	t.Parallel()

	ts := newACLTestServer(t)
	createAs(t, ts, "alice")
	require.NoError(t, ts.perms.Grant("doc1", "bob", acl.Editor))

	t.Run("editor cannot delete", func(t *testing.T) {
		rec := ts.doAs("bob", http.MethodDelete, "/documents/doc1", "")
		require.Equal(t, http.StatusForbidden, rec.Code)

		exists, _ := ts.store.DocumentExists("doc1")
		require.True(t, exists)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		rec := ts.doAs("mallory", http.MethodDelete, "/documents/doc1", "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner deletes and permissions go with it", func(t *testing.T) {
		rec := ts.doAs("alice", http.MethodDelete, "/documents/doc1", "")
		require.Equal(t, http.StatusNoContent, rec.Code)

		perms, err := ts.perms.ListPermissions("doc1")
		require.NoError(t, err)
		require.Empty(t, perms)
	})

	t.Run("missing document is still a 404", func(t *testing.T) {
		rec := ts.doAs("alice", http.MethodDelete, "/documents/doc1", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAccess_Sharing(t *testing.T) {
	t.Parallel()

	ts := newACLTestServer(t)
	createAs(t, ts, "alice")

	rec := ts.doAs("alice", http.MethodPut, "/documents/doc1/permissions", `{"userId":"bob","role":"formatter"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var granted acl.Permission
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&granted))
	require.Equal(t, acl.Permission{DocID: "doc1", UserID: "bob", Role: acl.Formatter}, granted)

	rec = ts.doAs("bob", http.MethodGet, "/documents/doc1/permissions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list api.ListPermissionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Equal(t, []acl.Permission{
		{DocID: "doc1", UserID: "alice", Role: acl.Owner},
		{DocID: "doc1", UserID: "bob", Role: acl.Formatter},
	}, list.Permissions)

	tests := []struct {
		name   string
		userID string
		method string
		path   string
		body   string
		want   int
	}{
		{"non-owner cannot share", "bob", http.MethodPut, "/documents/doc1/permissions", `{"userId":"carol","role":"viewer"}`, http.StatusForbidden},
		{"unknown role", "alice", http.MethodPut, "/documents/doc1/permissions", `{"userId":"carol","role":"admin"}`, http.StatusBadRequest},
		{"missing user", "alice", http.MethodPut, "/documents/doc1/permissions", `{"role":"viewer"}`, http.StatusBadRequest},
		{"owner cannot demote self", "alice", http.MethodPut, "/documents/doc1/permissions", `{"userId":"alice","role":"viewer"}`, http.StatusBadRequest},
		{"owner cannot revoke self", "alice", http.MethodDelete, "/documents/doc1/permissions?userId=alice", "", http.StatusBadRequest},
		{"revoke unknown user", "alice", http.MethodDelete, "/documents/doc1/permissions?userId=carol", "", http.StatusNotFound},
		{"stranger cannot list", "mallory", http.MethodGet, "/documents/doc1/permissions", "", http.StatusForbidden},
		{"unknown document", "alice", http.MethodGet, "/documents/nope/permissions", "", http.StatusNotFound},
		{"method not allowed", "alice", http.MethodPost, "/documents/doc1/permissions", "", http.StatusMethodNotAllowed},
		{"revoke bob", "alice", http.MethodDelete, "/documents/doc1/permissions?userId=bob", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		if rec := ts.doAs(tt.userID, tt.method, tt.path, tt.body); rec.Code != tt.want {
			t.Errorf("%s: expected %d, got %d (%s)", tt.name, tt.want, rec.Code, rec.Body.String())
		}
	}

	_, err := ts.perms.GetRole("doc1", "bob")
	require.ErrorIs(t, err, acl.ErrPermissionNotFound)
}

func TestAccess_PermissionsDisabled(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t)
	require.NoError(t, ts.store.CreateDocument("doc1"))

	rec := ts.do(http.MethodGet, "/documents/doc1/permissions", "")
	require.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestAccess_WebSocket(t *testing.T) {
	t.Parallel()

	ts := newACLTestServer(t)
	createAs(t, ts, "alice")
	require.NoError(t, ts.perms.Grant("doc1", "bob", acl.Formatter))

	srv := httptest.NewServer(ts.handler)
	t.Cleanup(srv.Close)

	alice := dial(t, srv, "doc1", "alice")
	readMessage[ws.StatePayload](t, alice, ws.MessageTypeState)

	sendOperation(t, alice, 0, `[{"insert":"Hello"}]`)
	require.Equal(t, 1, readMessage[ws.AckPayload](t, alice, ws.MessageTypeAck).Revision)

	bob := dial(t, srv, "doc1", "bob")
	state := readMessage[ws.StatePayload](t, bob, ws.MessageTypeState)
	require.Equal(t, "Hello", state.Content)

	sendOperation(t, bob, 1, `[{"retain":5},{"insert":"!"}]`)
	errPayload := readMessage[ws.ErrorPayload](t, bob, ws.MessageTypeError)
	require.Equal(t, ws.ErrorCodeForbidden, errPayload.Code)

	sendOperation(t, bob, 1, `[{"retain":5,"attributes":{"italic":"true"}}]`)
	require.Equal(t, 2, readMessage[ws.AckPayload](t, bob, ws.MessageTypeAck).Revision)

	broadcast := readMessage[ws.BroadcastPayload](t, alice, ws.MessageTypeBroadcast)
	require.Equal(t, "bob", broadcast.UserID)

	mallory := dial(t, srv, "doc1", "mallory")
	errPayload = readMessage[ws.ErrorPayload](t, mallory, ws.MessageTypeError)
	require.Equal(t, ws.ErrorCodeForbidden, errPayload.Code)
}
