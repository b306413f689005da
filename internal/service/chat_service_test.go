package service

import (
	"context"
	"testing"

	"officine/internal/apierror"
	"officine/internal/authz"
	"officine/internal/dto"
	"officine/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_SendReachesBothParticipants(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	pharmacist := e.user(t, authz.RolePharmacist)

	m, err := e.chats.Send(ctx, client.ID, dto.SendMessageRequest{RecipientID: pharmacist.ID.String(), Body: "  Bonjour, avez-vous du Smecta ?  "})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour, avez-vous du Smecta ?", m.Body)

	sent := e.events.named(realtime.EventNewMessage)
	require.Len(t, sent, 1)
	assert.ElementsMatch(t, []string{
		realtime.UserRoom(client.ID.String()),
		realtime.UserRoom(pharmacist.ID.String()),
	}, sent[0].Rooms)

	_, err = e.chats.Send(ctx, pharmacist.ID, dto.SendMessageRequest{RecipientID: client.ID.String(), Body: "Oui"})
	require.NoError(t, err)

	conv, err := e.chats.Conversation(ctx, pharmacist.ID, client.ID, 50)
	require.NoError(t, err)
	assert.Len(t, conv, 2)
}

func TestChat_SendRejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)

	_, err := e.chats.Send(ctx, client.ID, dto.SendMessageRequest{RecipientID: client.ID.String(), Body: "me"})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	_, err = e.chats.Send(ctx, client.ID, dto.SendMessageRequest{RecipientID: uuid.NewString(), Body: "hello?"})
	assert.True(t, apierror.Is(err, apierror.KindNotFound))

	other := e.user(t, authz.RolePharmacist)
	_, err = e.chats.Send(ctx, client.ID, dto.SendMessageRequest{RecipientID: other.ID.String(), Body: "   "})
	assert.True(t, apierror.Is(err, apierror.KindValidation))
	assert.Empty(t, e.events.named(realtime.EventNewMessage))
}

func TestChat_OnlySenderEditsOrDeletes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	pharmacist := e.user(t, authz.RolePharmacist)

	m, err := e.chats.Send(ctx, client.ID, dto.SendMessageRequest{RecipientID: pharmacist.ID.String(), Body: "first"})
	require.NoError(t, err)
	id := uuid.MustParse(m.ID)

	_, err = e.chats.Edit(ctx, pharmacist.ID, id, dto.EditMessageRequest{Body: "hijacked"})
	assert.True(t, apierror.Is(err, apierror.KindForbidden))
	assert.True(t, apierror.Is(e.chats.Delete(ctx, pharmacist.ID, id), apierror.KindForbidden))

	edited, err := e.chats.Edit(ctx, client.ID, id, dto.EditMessageRequest{Body: "second"})
	require.NoError(t, err)
	assert.True(t, edited.Edited)
	assert.Equal(t, "second", edited.Body)
	assert.Len(t, e.events.named(realtime.EventMessageUpdated), 1)

	require.NoError(t, e.chats.Delete(ctx, client.ID, id))
	deleted := e.events.named(realtime.EventMessageDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, m.ID, deleted[0].Payload.(dto.MessageDeleted).ID)

	assert.True(t, apierror.Is(e.chats.Delete(ctx, client.ID, id), apierror.KindNotFound))
	conv, err := e.chats.Conversation(ctx, client.ID, pharmacist.ID, 50)
	require.NoError(t, err)
	assert.Empty(t, conv)
}
