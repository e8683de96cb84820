package dispatcher

import (
	"context"
	"maps"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

// optStringMap treats an absent or null map as empty.
func optStringMap(args Args, key string) (map[string]string, error) {
	if v, ok := args[key]; !ok || v == nil {
		return map[string]string{}, nil
	}
	return args.StringMap(key)
}

func (d *Dispatcher) logEvent(_ context.Context, args Args) (any, error) {
	id, err := args.String("eventId")
	if err != nil {
		return nil, err
	}
	return int(d.sdk.LogEvent(id, nil, false)), nil
}

func (d *Dispatcher) logEventWithParameters(_ context.Context, args Args) (any, error) {
	id, err := args.String("eventId")
	if err != nil {
		return nil, err
	}
	params, err := args.StringMap("parameters")
	if err != nil {
		return nil, err
	}
	return int(d.sdk.LogEvent(id, params, false)), nil
}

func (d *Dispatcher) logTimedEvent(_ context.Context, args Args) (any, error) {
	id, err := args.String("eventId")
	if err != nil {
		return nil, err
	}
	timed, err := args.Bool("timed")
	if err != nil {
		return nil, err
	}
	return int(d.sdk.LogEvent(id, nil, timed)), nil
}

func (d *Dispatcher) logTimedEventWithParameters(_ context.Context, args Args) (any, error) {
	id, err := args.String("eventId")
	if err != nil {
		return nil, err
	}
	params, err := args.StringMap("parameters")
	if err != nil {
		return nil, err
	}
	timed, err := args.Bool("timed")
	if err != nil {
		return nil, err
	}
	return int(d.sdk.LogEvent(id, params, timed)), nil
}

func (d *Dispatcher) endTimedEvent(_ context.Context, args Args) (any, error) {
	id, err := args.String("eventId")
	if err != nil {
		return nil, err
	}
	d.sdk.EndTimedEvent(id, nil)
	return nil, nil
}

func (d *Dispatcher) endTimedEventWithParameters(_ context.Context, args Args) (any, error) {
	id, err := args.String("eventId")
	if err != nil {
		return nil, err
	}
	params, err := args.StringMap("parameters")
	if err != nil {
		return nil, err
	}
	d.sdk.EndTimedEvent(id, params)
	return nil, nil
}

// logStandardEvent resolves the event and parameter indexes against the
// standard tables. An unknown event fails without reaching the agent.
// Unknown parameter indexes are dropped. User parameters are merged last.
func (d *Dispatcher) logStandardEvent(_ context.Context, args Args) (any, error) {
	id, err := args.Int("id")
	if err != nil {
		return nil, err
	}
	event, ok := flurry.LookupStandardEvent(id)
	if !ok {
		d.logger.Error("standard event id out of range", "id", id)
		return int(flurry.EventFailed), nil
	}

	var standard map[int]string
	if v, present := args["flurryParam"]; present && v != nil {
		standard, err = args.IntStringMap("flurryParam")
		if err != nil {
			return nil, err
		}
	}
	user, err := optStringMap(args, "userParam")
	if err != nil {
		return nil, err
	}

	params := make(map[string]string, len(standard)+len(user))
	for idx, value := range standard {
		p, ok := flurry.LookupStandardParam(idx)
		if !ok {
			d.logger.Error("standard event parameter id out of range", "id", idx, "event", event)
			continue
		}
		params[string(p)] = value
	}
	maps.Copy(params, user)

	return int(d.sdk.LogStandardEvent(event, params)), nil
}

func (d *Dispatcher) errorArgs(args Args) (id, message, class string, err error) {
	if id, err = args.String("errorId"); err != nil {
		return
	}
	if message, err = args.String("message"); err != nil {
		return
	}
	class, err = args.String("errorClass")
	return
}

func (d *Dispatcher) onError(_ context.Context, args Args) (any, error) {
	id, message, class, err := d.errorArgs(args)
	if err != nil {
		return nil, err
	}
	d.sdk.OnError(id, message, class, nil)
	return nil, nil
}

func (d *Dispatcher) onErrorWithParameters(_ context.Context, args Args) (any, error) {
	id, message, class, err := d.errorArgs(args)
	if err != nil {
		return nil, err
	}
	params, err := args.StringMap("parameters")
	if err != nil {
		return nil, err
	}
	d.sdk.OnError(id, message, class, params)
	return nil, nil
}

func (d *Dispatcher) logPayment(_ context.Context, args Args) (any, error) {
	var (
		p   flurry.Payment
		err error
	)
	if p.ProductName, err = args.String("productName"); err != nil {
		return nil, err
	}
	if p.ProductID, err = args.String("productId"); err != nil {
		return nil, err
	}
	if p.Quantity, err = args.Int("quantity"); err != nil {
		return nil, err
	}
	if p.Price, err = args.Float("price"); err != nil {
		return nil, err
	}
	if p.Currency, err = args.String("currency"); err != nil {
		return nil, err
	}
	if p.TransactionID, err = args.String("transactionId"); err != nil {
		return nil, err
	}
	if p.Parameters, err = optStringMap(args, "parameters"); err != nil {
		return nil, err
	}
	return int(d.sdk.LogPayment(p)), nil
}
