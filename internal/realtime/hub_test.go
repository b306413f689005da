package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"officine/internal/authz"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frames(m *Member) []Frame {
	var out []Frame
	for {
		select {
		case raw, ok := <-m.Frames():
			if !ok {
				return out
			}
			var f Frame
			if err := json.Unmarshal(raw, &f); err == nil {
				out = append(out, f)
			}
		default:
			return out
		}
	}
}

func TestHub_NewSaleReachesPharmacistNotClient(t *testing.T) {
	h := NewHub()
	pharmacist := NewMember(4)
	client := NewMember(4)
	h.Join(pharmacist, authz.RolePharmacist, "p-1")
	h.Join(client, authz.RoleClient, "c-1")

	h.Publish(EventNewSale, map[string]int{"quantity": 2}, StaffRooms...)

	got := frames(pharmacist)
	require.Len(t, got, 1)
	assert.Equal(t, EventNewSale, got[0].Event)
	assert.JSONEq(t, `{"quantity":2}`, string(got[0].Data))
	assert.Empty(t, frames(client))
}

func TestHub_DeliversOncePerMember(t *testing.T) {
	h := NewHub()
	m := NewMember(4)
	h.Join(m, authz.RolePharmacist, "u-1")

	h.Publish(EventPrescriptionValidated, "x", UserRoom("u-1"), RoomPharmacist)
	assert.Len(t, frames(m), 1)
}

func TestHub_RejoinReplacesRooms(t *testing.T) {
	h := NewHub()
	m := NewMember(4)
	h.Join(m, authz.RoleClient, "")
	h.Join(m, authz.RoleClient, "u-9")
	assert.Equal(t, 1, h.Count())

	h.Publish(EventNewMessage, "hi", UserRoom("u-9"))
	assert.Len(t, frames(m), 1)
}

func TestHub_FullBufferDropsWithoutBlocking(t *testing.T) {
	h := NewHub()
	m := NewMember(1)
	h.Join(m, authz.RoleAdmin, "")

	h.Publish(EventLowStock, 1, RoomAdmin)
	h.Publish(EventLowStock, 2, RoomAdmin)

	got := frames(m)
	require.Len(t, got, 1)
	assert.Equal(t, "1", string(got[0].Data))
}

func TestHub_DisconnectClosesAndRemoves(t *testing.T) {
	h := NewHub()
	m := NewMember(4)
	h.Join(m, authz.RoleClient, "u-1")

	assert.True(t, h.Disconnect(m.ID()))
	assert.False(t, h.Disconnect(m.ID()))
	assert.Equal(t, 0, h.Count())

	_, open := <-m.Frames()
	assert.False(t, open)

	// publishing to an emptied room is a no-op
	h.Publish(EventNewMessage, "x", UserRoom("u-1"))
}

func TestHub_ConcurrentJoinPublishDisconnect(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m := NewMember(2)
			h.Join(m, authz.RolePharmacist, "")
			h.Disconnect(m.ID())
		}()
		go func() {
			defer wg.Done()
			h.Publish(EventNewSale, "s", RoomPharmacist)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, h.Count())
}
