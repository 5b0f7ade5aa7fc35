package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrInsufficientPayment = errors.New("pago insuficiente")
	ErrForbidden           = errors.New("acceso denegado")
	ErrInvalidState        = errors.New("transición de estado inválida")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrUnauthorized        = errors.New("no autorizado")
)

// NotFoundError indica qué entidad (y qué ids) no existen.
type NotFoundError struct {
	Entity string
	IDs    []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s no encontrado: %s", e.Entity, strings.Join(e.IDs, ", "))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound construye un NotFoundError.
func NotFound(entity string, ids ...string) error {
	return &NotFoundError{Entity: entity, IDs: ids}
}

// InvalidInputError describe el campo rechazado y el motivo.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "entrada inválida: " + e.Reason
	}
	return fmt.Sprintf("entrada inválida (%s): %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput construye un InvalidInputError.
func InvalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// InsufficientStockError siempre incluye disponible vs solicitado.
type InsufficientStockError struct {
	ProductID   string
	WarehouseID string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para producto %s en bodega %s: disponible %s, solicitado %s",
		e.ProductID, e.WarehouseID, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InsufficientPaymentError total de la venta vs monto entregado.
type InsufficientPaymentError struct {
	Total    decimal.Decimal
	Tendered decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("pago insuficiente: total %s, entregado %s", e.Total.StringFixed(2), e.Tendered.StringFixed(2))
}

func (e *InsufficientPaymentError) Is(target error) bool { return target == ErrInsufficientPayment }

// ForbiddenError identifica al actor, la acción y la bodega involucrada.
type ForbiddenError struct {
	ActorID     string
	Action      string
	WarehouseID string
}

func (e *ForbiddenError) Error() string {
	if e.WarehouseID == "" {
		return fmt.Sprintf("acceso denegado: actor %s no puede ejecutar %s", e.ActorID, e.Action)
	}
	return fmt.Sprintf("acceso denegado: actor %s no puede ejecutar %s sobre bodega %s", e.ActorID, e.Action, e.WarehouseID)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// InvalidStateError nombra el estado actual y el solicitado.
type InvalidStateError struct {
	Entity    string
	ID        string
	Current   string
	Requested string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: no se puede pasar de %q a %q", e.Entity, e.ID, e.Current, e.Requested)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }
