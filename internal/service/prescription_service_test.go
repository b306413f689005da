package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"officine/internal/apierror"
	"officine/internal/authz"
	"officine/internal/dto"
	"officine/internal/infra"
	"officine/internal/model"
	"officine/internal/realtime"
	"officine/internal/repository"
	"officine/internal/repository/inmem"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submit(t *testing.T, e *env, clientID uuid.UUID) *dto.PrescriptionResponse {
	t.Helper()
	p, err := e.prescriptions.Submit(context.Background(), clientID, bytes.NewReader(pngScan))
	require.NoError(t, err)
	return p
}

func pid(t *testing.T, p *dto.PrescriptionResponse) uuid.UUID {
	t.Helper()
	return uuid.MustParse(p.ID)
}

func TestPrescription_FullWorkflow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	pharmacist := e.user(t, authz.RolePharmacist)
	p1 := e.product(t, "P1", "4.50", 10)

	p := submit(t, e, client.ID)
	assert.Equal(t, model.PrescriptionPending, p.Status)
	assert.Equal(t, client.FullName, p.ClientName)
	require.Len(t, e.events.named(realtime.EventNewPrescription), 1)
	assert.ElementsMatch(t, realtime.StaffRooms, e.events.named(realtime.EventNewPrescription)[0].Rooms)

	p, err := e.prescriptions.Validate(ctx, pharmacist.ID, pid(t, p), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{{ProductID: p1.ID.String(), Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionValidated, p.Status)
	assert.True(t, decimal.RequireFromString("9.00").Equal(p.Total))
	require.Len(t, p.Medications, 1)
	assert.True(t, p.Medications[0].Available)
	validated := e.events.named(realtime.EventPrescriptionValidated)
	require.Len(t, validated, 1)
	assert.Contains(t, validated[0].Rooms, realtime.UserRoom(client.ID.String()))

	p, err = e.prescriptions.Prepare(ctx, pharmacist.ID, pid(t, p))
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionPrepared, p.Status)
	require.Len(t, e.mail.sent, 1)
	assert.Equal(t, client.Email, e.mail.sent[0].ToEmail)

	p, err = e.prescriptions.RecordPayment(ctx, pharmacist.ID, pid(t, p), "cash")
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionDelivered, p.Status)
	require.NotNil(t, p.PaymentMethod)
	assert.Equal(t, "cash", *p.PaymentMethod)
	assert.Equal(t, 8, e.stockOf(t, p1.ID))

	ref := pid(t, p)
	moves, total, err := e.movements.List(ctx, repository.StockMovementFilter{ReferenceID: &ref})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, model.MovementOut, moves[0].Type)
	assert.Equal(t, 2, moves[0].Quantity)
	assert.Len(t, e.events.named(realtime.EventPrescriptionDelivered), 1)
}

func TestPrescription_PrepareWhilePendingIsInvalidState(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, authz.RoleClient)
	p := submit(t, e, client.ID)

	_, err := e.prescriptions.Prepare(context.Background(), uuid.New(), pid(t, p))
	assert.True(t, apierror.Is(err, apierror.KindInvalidState))
}

func TestPrescription_ValidateErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	p := submit(t, e, client.ID)

	_, err := e.prescriptions.Validate(ctx, uuid.New(), uuid.New(), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{{ProductID: uuid.NewString(), Quantity: 1}},
	})
	assert.True(t, apierror.Is(err, apierror.KindNotFound))

	_, err = e.prescriptions.Validate(ctx, uuid.New(), pid(t, p), dto.ValidatePrescriptionRequest{})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	_, err = e.prescriptions.Validate(ctx, uuid.New(), pid(t, p), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{{ProductID: uuid.NewString(), Quantity: 1}},
	})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	got, err := e.prescriptions.Get(ctx, Actor{ID: client.ID, Role: authz.RoleClient}, pid(t, p))
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionPending, got.Status)
}

func TestPrescription_ShortStockAtValidationIsFlaggedNotReserved(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, authz.RoleClient)
	scarce := e.product(t, "SCARCE", "3.00", 1)
	p := submit(t, e, client.ID)

	got, err := e.prescriptions.Validate(context.Background(), uuid.New(), pid(t, p), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{{ProductID: scarce.ID.String(), Quantity: 3}},
	})
	require.NoError(t, err)
	assert.False(t, got.Medications[0].Available)
	assert.Equal(t, 1, e.stockOf(t, scarce.ID))
}

func TestPrescription_RejectIsTerminal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	p := submit(t, e, client.ID)
	note := "illegible"

	got, err := e.prescriptions.Reject(ctx, uuid.New(), pid(t, p), &note)
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionRejected, got.Status)
	assert.Equal(t, &note, got.Description)

	_, err = e.prescriptions.Validate(ctx, uuid.New(), pid(t, p), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{{ProductID: uuid.NewString(), Quantity: 1}},
	})
	assert.True(t, apierror.Is(err, apierror.KindInvalidState))
	_, err = e.prescriptions.Reject(ctx, uuid.New(), pid(t, p), nil)
	assert.True(t, apierror.Is(err, apierror.KindInvalidState))
}

func TestPrescription_PaymentShortOfStockChangesNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	staff := e.user(t, authz.RolePharmacist)
	plenty := e.product(t, "PLENTY", "2.00", 50)
	short := e.product(t, "SHORT", "2.00", 5)
	p := submit(t, e, client.ID)

	_, err := e.prescriptions.Validate(ctx, staff.ID, pid(t, p), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{
			{ProductID: plenty.ID.String(), Quantity: 4},
			{ProductID: short.ID.String(), Quantity: 5},
		},
	})
	require.NoError(t, err)
	_, err = e.prescriptions.Prepare(ctx, staff.ID, pid(t, p))
	require.NoError(t, err)

	// the counter sells the last units in between
	_, err = e.sales.RecordSale(ctx, staff.ID, dto.RecordSaleRequest{ProductID: short.ID.String(), Quantity: 2})
	require.NoError(t, err)

	_, err = e.prescriptions.RecordPayment(ctx, staff.ID, pid(t, p), "card")
	assert.True(t, apierror.Is(err, apierror.KindInsufficientStock))
	assert.Equal(t, 50, e.stockOf(t, plenty.ID))
	assert.Equal(t, 3, e.stockOf(t, short.ID))

	got, err := e.prescriptions.Get(ctx, Actor{ID: staff.ID, Role: authz.RolePharmacist}, pid(t, p))
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionPrepared, got.Status)
}

func TestPrescription_UpdateStatusDispatches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	client := e.user(t, authz.RoleClient)
	staff := e.user(t, authz.RoleAdmin)
	prod := e.product(t, "DISP", "1.00", 5)
	p := submit(t, e, client.ID)
	id := pid(t, p)

	got, err := e.prescriptions.UpdateStatus(ctx, staff.ID, id, dto.UpdatePrescriptionRequest{
		Status:      model.PrescriptionValidated,
		Medications: []dto.MedicationLine{{ProductID: prod.ID.String(), Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionValidated, got.Status)

	got, err = e.prescriptions.UpdateStatus(ctx, staff.ID, id, dto.UpdatePrescriptionRequest{Status: model.PrescriptionPrepared})
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionPrepared, got.Status)

	_, err = e.prescriptions.UpdateStatus(ctx, staff.ID, id, dto.UpdatePrescriptionRequest{Status: model.PrescriptionDelivered})
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	method := "insurance"
	got, err = e.prescriptions.UpdateStatus(ctx, staff.ID, id, dto.UpdatePrescriptionRequest{Status: model.PrescriptionDelivered, PaymentMethod: &method})
	require.NoError(t, err)
	assert.Equal(t, model.PrescriptionDelivered, got.Status)
	assert.Equal(t, 4, e.stockOf(t, prod.ID))
}

func TestPrescription_RepeatedProductLinesShareTheStock(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, authz.RoleClient)
	p1 := e.product(t, "P1", "4.50", 10)
	p := submit(t, e, client.ID)

	got, err := e.prescriptions.Validate(context.Background(), uuid.New(), pid(t, p), dto.ValidatePrescriptionRequest{
		Medications: []dto.MedicationLine{
			{ProductID: p1.ID.String(), Quantity: 6},
			{ProductID: p1.ID.String(), Quantity: 6},
		},
	})
	require.NoError(t, err)
	require.Len(t, got.Medications, 2)
	assert.False(t, got.Medications[0].Available)
	assert.False(t, got.Medications[1].Available)
	assert.Equal(t, 10, e.stockOf(t, p1.ID))
}

type failingPrescriptions struct{ repository.PrescriptionRepository }

func (failingPrescriptions) Create(context.Context, *model.Prescription) error {
	return errors.New("insert failed")
}

func TestPrescription_SubmitFailureLeavesNoScan(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, authz.RoleClient)
	dir := t.TempDir()
	uploads, err := infra.NewUploadStore(dir, 1)
	require.NoError(t, err)
	svc := NewPrescriptionService(failingPrescriptions{inmem.NewPrescriptions(e.store)}, e.users, e.products,
		e.movements, uploads, e.events, e.mail, "Pharmacie Test")

	_, err = svc.Submit(context.Background(), client.ID, bytes.NewReader(pngScan))
	require.Error(t, err)

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Empty(t, e.events.named(realtime.EventNewPrescription))
}

func TestPrescription_SubmitRequiresImage(t *testing.T) {
	e := newEnv(t)
	client := e.user(t, authz.RoleClient)

	_, err := e.prescriptions.Submit(context.Background(), client.ID, nil)
	assert.True(t, apierror.Is(err, apierror.KindValidation))

	_, err = e.prescriptions.Submit(context.Background(), client.ID, strings.NewReader("just some text"))
	assert.True(t, apierror.Is(err, apierror.KindValidation))
	assert.Empty(t, e.events.named(realtime.EventNewPrescription))
}

func TestPrescription_ClientsOnlySeeTheirOwn(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, authz.RoleClient)
	bob := e.user(t, authz.RoleClient)
	p := submit(t, e, alice.ID)
	submit(t, e, bob.ID)

	_, err := e.prescriptions.Get(ctx, Actor{ID: bob.ID, Role: authz.RoleClient}, pid(t, p))
	assert.True(t, apierror.Is(err, apierror.KindForbidden))

	rc, contentType, err := e.prescriptions.Image(ctx, Actor{ID: alice.ID, Role: authz.RoleClient}, pid(t, p))
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngScan, body)

	mine, err := e.prescriptions.ListMine(ctx, alice.ID, dto.PrescriptionFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, mine.Total)

	all, err := e.prescriptions.ListAll(ctx, dto.PrescriptionFilter{Status: model.PrescriptionPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	_, err = e.prescriptions.ListAll(ctx, dto.PrescriptionFilter{Status: "lost"})
	assert.True(t, apierror.Is(err, apierror.KindValidation))
}
