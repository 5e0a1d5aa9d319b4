package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vbncursed/vkr/intent-gate/internal/canonical"
	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

const BookFlightName = "book_flight"

// Booking is a provider's confirmation.
type Booking struct {
	ConfirmationID string
	Destination    string
	Price          float64
	Quantity       float64
}

// FlightProvider performs the irreversible booking.
type FlightProvider interface {
	Book(ctx context.Context, destination string, price, quantity float64) (Booking, error)
}

// LocalProvider confirms every booking without contacting anyone.
type LocalProvider struct{}

func (LocalProvider) Book(ctx context.Context, destination string, price, quantity float64) (Booking, error) {
	if err := ctx.Err(); err != nil {
		return Booking{}, err
	}
	return Booking{ConfirmationID: uuid.NewString(), Destination: destination, Price: price, Quantity: quantity}, nil
}

// BookFlight is the guarded flight booking tool.
type BookFlight struct {
	provider FlightProvider
	currency string
}

func NewBookFlight(p FlightProvider, currency string) *BookFlight {
	if p == nil {
		p = LocalProvider{}
	}
	return &BookFlight{provider: p, currency: currency}
}

func (*BookFlight) Name() string { return BookFlightName }

// BookFlightArgs are the arguments an agent passes, minus the token.
type BookFlightArgs struct {
	Destination string   `json:"destination"`
	Price       float64  `json:"price"`
	Quantity    *float64 `json:"quantity,omitempty"`
}

// Descriptor is the action a plan step must name for this booking.
func (a BookFlightArgs) Descriptor() models.ActionDescriptor {
	d := models.ActionDescriptor{Name: BookFlightName, Params: []models.Param{
		{Name: "destination", Value: models.String(a.Destination)},
		{Name: "price", Value: models.Number(a.Price)},
	}}
	if a.Quantity != nil {
		d.Params = append(d.Params, models.Param{Name: "quantity", Value: models.Number(*a.Quantity)})
	}
	return d
}

func (*BookFlight) Action(args map[string]any) (models.ActionDescriptor, error) {
	for k := range args {
		switch k {
		case "destination", "price", "quantity":
		default:
			return models.ActionDescriptor{}, fmt.Errorf("unexpected argument %q", k)
		}
	}
	dest, ok := args["destination"].(string)
	if !ok || strings.TrimSpace(dest) == "" {
		return models.ActionDescriptor{}, fmt.Errorf("destination must be a non-empty string")
	}
	a, err := models.NewAction(BookFlightName, args)
	if err != nil {
		return models.ActionDescriptor{}, err
	}
	if v, ok := a.Param("price"); !ok || v.Kind != models.KindNumber {
		return models.ActionDescriptor{}, fmt.Errorf("price must be a number")
	}
	if v, ok := a.Param("quantity"); ok && v.Kind != models.KindNumber {
		return models.ActionDescriptor{}, fmt.Errorf("quantity must be a number")
	}
	return a, nil
}

func (b *BookFlight) Run(ctx context.Context, action models.ActionDescriptor) (string, error) {
	dest, _ := action.Param("destination")
	price, _ := action.Param("price")
	qty := 1.0
	if q, ok := action.Param("quantity"); ok {
		qty = q.Num
	}
	bk, err := b.provider.Book(ctx, dest.Str, price.Num, qty)
	if err != nil {
		return "", fmt.Errorf("flight provider: %w", err)
	}
	return fmt.Sprintf("Flight to %s confirmed for %s (confirmation %s).",
		bk.Destination, formatAmount(b.currency, bk.Price*bk.Quantity), bk.ConfirmationID), nil
}

func formatAmount(currency string, f float64) string {
	s, err := canonical.FormatNumber(f)
	if err != nil {
		s = "?"
	}
	if strings.EqualFold(currency, "INR") {
		return "₹" + s
	}
	if currency == "" {
		return s
	}
	return s + " " + strings.ToUpper(currency)
}

// Book is the typed form of Registry.Invoke for book_flight.
func (r *Registry) Book(ctx context.Context, identity models.IdentityContext, args BookFlightArgs, armorToken string) string {
	m := args.Descriptor().ParamMap()
	res, err := r.Invoke(ctx, BookFlightName, identity, m, armorToken)
	if err != nil {
		return Result{Class: ClassError, Outcome: models.OutcomeUpstreamFailure, Message: err.Error()}.String()
	}
	return res.String()
}
