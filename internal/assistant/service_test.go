package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/gateway"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/storage"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/vendors"
	"github.com/MATHILDEdemariable/mariable-fr-sub003/internal/wedding"
)

type mockChatter struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []gateway.ChatRequest
}

func (m *mockChatter) Complete(_ context.Context, req gateway.ChatRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return `{"conversational":true,"message":"..."}`, nil
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

type failingStore struct {
	getErr, putErr error
}

func (f failingStore) GetConversation(context.Context, string) (wedding.Conversation, error) {
	return wedding.Conversation{}, f.getErr
}

func (f failingStore) UpsertConversation(context.Context, wedding.Conversation) (string, error) {
	return "", f.putErr
}

type failingLookup struct{}

func (failingLookup) Find(context.Context, string, int) ([]wedding.Vendor, error) {
	return nil, errors.New("vendors table missing")
}

func newTestService(t *testing.T, chat Chatter) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for _, v := range []wedding.Vendor{
		{ID: "v1", Name: "Château", City: "Lyon"},
		{ID: "v2", Name: "Traiteur", City: "Lyon 2e"},
		{ID: "v3", Name: "Fleurs", City: "Annecy"},
	} {
		_, err := store.SaveVendor(context.Background(), v)
		require.NoError(t, err)
	}
	return NewService(chat, store, vendors.NewDirectory(store), Config{Model: "test", Temperature: 0.7}), store
}

const initialLyon = "```json\n" + `{"conversational":false,"mode":"initial","summary":"Mariage à Lyon","weddingData":{"guests":80,"budget":null,"location":"Lyon","date":null,"style":null},"budgetBreakdown":[],"timeline":[]}` + "\n```"

func TestRespond_InitialTurnPersistsAndFindsVendors(t *testing.T) {
	chat := &mockChatter{replies: []string{initialLyon}}
	svc, store := newTestService(t, chat)

	resp, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "80 invités à Lyon", SessionID: "s1", UserID: "alice"})
	require.NoError(t, err)

	assert.Equal(t, wedding.ModeInitial, resp.Response.Mode)
	assert.NotEmpty(t, resp.ConversationID)
	require.Len(t, resp.Vendors, 2)
	assert.Equal(t, "v1", resp.Vendors[0].ID)

	conv, err := store.GetConversation(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, wedding.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, initialLyon, conv.Messages[1].Content)
	assert.Equal(t, "alice", conv.UserID)
	require.NotNil(t, conv.WeddingContext)
	assert.Equal(t, "Mariage à Lyon", conv.WeddingContext.Summary)

	req := chat.requests[0]
	assert.Equal(t, "test", req.Model)
	assert.Equal(t, 0.7, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, gateway.RoleSystem, req.Messages[0].Role)
}

func TestRespond_SecondTurnReplaysHistoryAndKeepsContext(t *testing.T) {
	chat := &mockChatter{replies: []string{initialLyon, `{"conversational":true,"message":"Avec plaisir !"}`}}
	svc, store := newTestService(t, chat)
	ctx := context.Background()

	first, err := svc.Respond(ctx, wedding.TurnRequest{Message: "80 invités à Lyon", SessionID: "s1"})
	require.NoError(t, err)

	project := wedding.Apply(nil, first.Response, first.Vendors)
	second, err := svc.Respond(ctx, wedding.TurnRequest{Message: "Merci", SessionID: "s1", ConversationID: first.ConversationID, CurrentProject: project})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.True(t, second.Response.Conversational)
	assert.NotNil(t, second.Vendors)
	assert.Empty(t, second.Vendors)

	req := chat.requests[1]
	require.Len(t, req.Messages, 4)
	assert.Contains(t, req.Messages[0].Content, `"location": "Lyon"`)
	assert.Equal(t, "Merci", req.Messages[3].Content)

	conv, err := store.GetConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 4)
	require.NotNil(t, conv.WeddingContext, "conversational turn keeps the last structured context")
	assert.Equal(t, wedding.ModeInitial, conv.WeddingContext.Mode)
}

func TestRespond_ParseFallback(t *testing.T) {
	raw := "```json\nJe n'ai pas bien compris, pouvez-vous préciser ?\n```  \n"
	chat := &mockChatter{replies: []string{raw}}
	svc, _ := newTestService(t, chat)

	resp, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "hmm", SessionID: "s1"})
	require.NoError(t, err)
	assert.True(t, resp.Response.Conversational)
	assert.Equal(t, raw, resp.Response.Message)
	assert.Empty(t, resp.Vendors)
}

func TestRespond_UnknownConversationStartsNew(t *testing.T) {
	svc, _ := newTestService(t, &mockChatter{})
	resp, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "Bonjour", SessionID: "s1", ConversationID: "does-not-exist"})
	require.NoError(t, err)
	assert.NotEqual(t, "does-not-exist", resp.ConversationID)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestRespond_Validation(t *testing.T) {
	chat := &mockChatter{}
	svc, _ := newTestService(t, chat)

	_, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "  ", SessionID: "s1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Respond(context.Background(), wedding.TurnRequest{Message: "Bonjour"})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	assert.Empty(t, chat.requests)
}

func TestRespond_UpstreamErrorsKeepKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"rate limited", &gateway.StatusError{Status: 429}, gateway.ErrRateLimited},
		{"quota", &gateway.StatusError{Status: 402}, gateway.ErrQuotaExceeded},
		{"other status", &gateway.StatusError{Status: 500, Body: "boom"}, gateway.ErrUpstream},
		{"untyped", errors.New("connection reset"), gateway.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, &mockChatter{err: tt.err})
			_, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "Bonjour", SessionID: "s1"})
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.err.Error())

			all, lerr := store.ListConversations(context.Background(), storage.ConversationFilter{})
			require.NoError(t, lerr)
			assert.Empty(t, all, "nothing is persisted for a failed turn")
		})
	}
}

func TestRespond_PersistenceFailure(t *testing.T) {
	chat := &mockChatter{}

	svc := NewService(chat, failingStore{getErr: errors.New("read failed")}, nil, Config{})
	_, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "Bonjour", SessionID: "s1", ConversationID: "c1"})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, chat.requests, "no LLM call when the transcript cannot be read")

	svc = NewService(chat, failingStore{putErr: errors.New("write failed")}, nil, Config{})
	_, err = svc.Respond(context.Background(), wedding.TurnRequest{Message: "Bonjour", SessionID: "s1"})
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestRespond_VendorLookupFailureIsNotFatal(t *testing.T) {
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	svc := NewService(&mockChatter{replies: []string{initialLyon}}, store, failingLookup{}, Config{})
	resp, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "80 invités à Lyon", SessionID: "s1"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Vendors)
	assert.Empty(t, resp.Vendors)
}

func TestRespond_UpdateModeLooksUpPatchedLocation(t *testing.T) {
	update := `{"conversational":false,"mode":"update","message":"On part à Annecy","updatedFields":{"weddingData":{"location":"Annecy"}}}`
	svc, _ := newTestService(t, &mockChatter{replies: []string{update}})

	resp, err := svc.Respond(context.Background(), wedding.TurnRequest{Message: "Finalement Annecy", SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, resp.Vendors, 1)
	assert.Equal(t, "v3", resp.Vendors[0].ID)
}
