package realtime

// Server to client event names.
const (
	EventNewPrescription       = "new-prescription"
	EventPrescriptionValidated = "prescription-validated"
	EventPrescriptionRejected  = "prescription-rejected"
	EventPrescriptionPrepared  = "prescription-prepared"
	EventPrescriptionDelivered = "prescription-delivered"

	EventNewMessage     = "new-message"
	EventMessageUpdated = "message-updated"
	EventMessageDeleted = "message-deleted"

	EventNewSale      = "new-sale"
	EventNewOrder     = "new-order"
	EventOrderUpdated = "order-updated"
	EventLowStock     = "low-stock"
)

// Fixed rooms. Every connection also sits in its own UserRoom.
const (
	RoomAdmin      = "admin"
	RoomPharmacist = "pharmacist"
	RoomClient     = "client"
)

// StaffRooms are the rooms reached by counter-side notifications.
var StaffRooms = []string{RoomAdmin, RoomPharmacist}

// UserRoom is the private room of one account.
func UserRoom(userID string) string { return "user:" + userID }

// Publisher is what services use to emit events. Delivery is best effort.
type Publisher interface {
	Publish(event string, payload any, rooms ...string)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(string, any, ...string) {}
