// Package dispatch runs calendar mutations and keeps every surface on the
// same contract: call the backend, tell the user what happened, refetch
// the calendar so the grid never shows stale cells.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"sportbook/internal/api"
	"sportbook/internal/model"
	"sportbook/internal/selection"
)

// Notifier delivers the outcome of a mutation to whoever asked for it.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Refetcher reloads the calendar data backing the current view.
type Refetcher interface {
	Refetch(ctx context.Context)
}

// RefetchFunc adapts a function to the Refetcher interface.
type RefetchFunc func(ctx context.Context)

func (f RefetchFunc) Refetch(ctx context.Context) { f(ctx) }

type backend interface {
	CreateBooking(ctx context.Context, req api.BookingRequest) (*model.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID string) error
	RejectBooking(ctx context.Context, bookingID, reason string) error
	CancelBooking(ctx context.Context, bookingID, reason string) error
	PayBooking(ctx context.Context, bookingID, cardID string) error
	CreateBlockedSlot(ctx context.Context, branchID string, req api.BlockedSlotRequest) (*model.BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, branchID, slotID string) error
	UpdateBranchHours(ctx context.Context, branchID string, hours []model.BranchHours) error
}

// Dispatcher executes booking and availability mutations.
type Dispatcher struct {
	api      backend
	notifier Notifier
	refetch  Refetcher
	log      zerolog.Logger
}

// New constructs a Dispatcher. refetch may be nil when no view is open.
func New(backendAPI backend, notifier Notifier, refetch Refetcher, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{api: backendAPI, notifier: notifier, refetch: refetch, log: log}
}

// ErrEmptyReason is returned when a rejection carries no reason.
var ErrEmptyReason = errors.New("rejection reason is required")

func (d *Dispatcher) doRefetch(ctx context.Context) {
	if d.refetch != nil {
		d.refetch.Refetch(ctx)
	}
}

// CreateBooking creates a pending booking and reports the result.
func (d *Dispatcher) CreateBooking(ctx context.Context, req api.BookingRequest) (*model.Booking, error) {
	booking, err := d.api.CreateBooking(ctx, req)
	if err != nil {
		d.log.Error().Err(err).Str("resource_id", req.ResourceID).Msg("create booking failed")
		d.notifier.Error("Error al crear la reserva")
		d.doRefetch(ctx)
		return nil, err
	}
	d.notifier.Success("Reserva creada, pendiente de confirmación")
	d.doRefetch(ctx)
	return booking, nil
}

// ConfirmBooking confirms a pending booking.
func (d *Dispatcher) ConfirmBooking(ctx context.Context, bookingID string) error {
	if err := d.api.ConfirmBooking(ctx, bookingID); err != nil {
		d.log.Error().Err(err).Str("booking_id", bookingID).Msg("confirm failed")
		d.notifier.Error("Error al confirmar la reserva")
		d.doRefetch(ctx)
		return err
	}
	d.notifier.Success("Reserva confirmada")
	d.doRefetch(ctx)
	return nil
}

// RejectBooking rejects a pending booking. The reason is mandatory and is
// validated before the backend is called.
func (d *Dispatcher) RejectBooking(ctx context.Context, bookingID, reason string) error {
	if reason == "" {
		d.notifier.Error("Debes indicar un motivo de rechazo")
		return ErrEmptyReason
	}
	if err := d.api.RejectBooking(ctx, bookingID, reason); err != nil {
		d.log.Error().Err(err).Str("booking_id", bookingID).Msg("reject failed")
		d.notifier.Error("Error al rechazar la reserva")
		d.doRefetch(ctx)
		return err
	}
	d.notifier.Success("Reserva rechazada")
	d.doRefetch(ctx)
	return nil
}

// CancelBooking cancels a booking with an optional reason.
func (d *Dispatcher) CancelBooking(ctx context.Context, bookingID, reason string) error {
	if err := d.api.CancelBooking(ctx, bookingID, reason); err != nil {
		d.log.Error().Err(err).Str("booking_id", bookingID).Msg("cancel failed")
		d.notifier.Error("Error al cancelar la reserva")
		d.doRefetch(ctx)
		return err
	}
	d.notifier.Success("Reserva cancelada")
	d.doRefetch(ctx)
	return nil
}

// PayBooking charges a stored card for a booking.
func (d *Dispatcher) PayBooking(ctx context.Context, bookingID, cardID string) error {
	if err := d.api.PayBooking(ctx, bookingID, cardID); err != nil {
		d.log.Error().Err(err).Str("booking_id", bookingID).Msg("payment failed")
		d.notifier.Error("Error al procesar el pago")
		d.doRefetch(ctx)
		return err
	}
	d.notifier.Success("Pago realizado con éxito")
	d.doRefetch(ctx)
	return nil
}

// BlockDays creates one blocked slot per selected day, all sharing the
// rectangle's time range. Requests run concurrently; the user gets one
// aggregate message either way, never a per-day breakdown.
func (d *Dispatcher) BlockDays(ctx context.Context, branchID, resourceID, reason string, candidates []selection.BlockCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, cand := range candidates {
		wg.Add(1)
		go func(cand selection.BlockCandidate) {
			defer wg.Done()
			_, err := d.api.CreateBlockedSlot(ctx, branchID, api.BlockedSlotRequest{
				ResourceID: resourceID,
				Date:       cand.Date.Format("2006-01-02"),
				StartTime:  cand.StartTime,
				EndTime:    cand.EndTime,
				Reason:     reason,
			})
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(cand)
	}
	wg.Wait()

	if firstErr != nil {
		d.log.Error().Err(firstErr).Str("branch_id", branchID).Int("days", len(candidates)).Msg("block days failed")
		d.notifier.Error("Error al bloquear los horarios seleccionados")
		d.doRefetch(ctx)
		return firstErr
	}

	if len(candidates) == 1 {
		d.notifier.Success("1 día bloqueado exitosamente")
	} else {
		d.notifier.Success(fmt.Sprintf("%d días bloqueados exitosamente", len(candidates)))
	}
	d.doRefetch(ctx)
	return nil
}

// UnblockSlot removes a blocked interval.
func (d *Dispatcher) UnblockSlot(ctx context.Context, branchID, slotID string) error {
	if err := d.api.DeleteBlockedSlot(ctx, branchID, slotID); err != nil {
		d.log.Error().Err(err).Str("slot_id", slotID).Msg("unblock failed")
		d.notifier.Error("Error al desbloquear el horario")
		d.doRefetch(ctx)
		return err
	}
	d.notifier.Success("Horario desbloqueado")
	d.doRefetch(ctx)
	return nil
}

// UpdateHours replaces a branch's weekly opening hours.
func (d *Dispatcher) UpdateHours(ctx context.Context, branchID string, hours []model.BranchHours) error {
	if err := d.api.UpdateBranchHours(ctx, branchID, hours); err != nil {
		d.log.Error().Err(err).Str("branch_id", branchID).Msg("update hours failed")
		d.notifier.Error("Error al actualizar los horarios")
		d.doRefetch(ctx)
		return err
	}
	d.notifier.Success("Horarios actualizados")
	d.doRefetch(ctx)
	return nil
}
