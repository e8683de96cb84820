package dispatcher

import (
	"context"
	"fmt"

	"github.com/arko-chat/flurrybridge/internal/flurry"
)

func (d *Dispatcher) setContinueSessionMillis(_ context.Context, args Args) (any, error) {
	millis, err := args.IntString("sessionMillisStr")
	if err != nil {
		return nil, err
	}
	d.sdk.SetContinueSessionMillis(millis)
	return nil, nil
}

func (d *Dispatcher) setLogLevel(_ context.Context, args Args) (any, error) {
	level, err := args.Int32String("logLevelStr")
	if err != nil {
		return nil, err
	}
	d.sdk.SetLogLevel(level)
	return nil, nil
}

func (d *Dispatcher) setAge(_ context.Context, args Args) (any, error) {
	age, err := args.Int32String("ageStr")
	if err != nil {
		return nil, err
	}
	d.sdk.SetAge(age)
	return nil, nil
}

// setGender maps "f" to female and any other value to male. A missing
// gender leaves the agent untouched.
func (d *Dispatcher) setGender(_ context.Context, args Args) (any, error) {
	g, ok := args.OptString("gender")
	if !ok {
		return nil, nil
	}
	if g == "f" {
		d.sdk.SetGender(flurry.GenderFemale)
	} else {
		d.sdk.SetGender(flurry.GenderMale)
	}
	return nil, nil
}

func (d *Dispatcher) setSessionOrigin(_ context.Context, args Args) (any, error) {
	name, err := args.String("originName")
	if err != nil {
		return nil, err
	}
	deepLink, _ := args.OptString("deepLink")
	d.sdk.SetSessionOrigin(name, deepLink)
	return nil, nil
}

func (d *Dispatcher) addOrigin(_ context.Context, args Args) (any, error) {
	name, version, err := originArgs(args)
	if err != nil {
		return nil, err
	}
	d.sdk.AddOrigin(name, version, nil)
	return nil, nil
}

func (d *Dispatcher) addOriginWithParameters(_ context.Context, args Args) (any, error) {
	name, version, err := originArgs(args)
	if err != nil {
		return nil, err
	}
	params, err := args.StringMap("originParameters")
	if err != nil {
		return nil, err
	}
	d.sdk.AddOrigin(name, version, params)
	return nil, nil
}

func originArgs(args Args) (string, string, error) {
	name, err := args.String("originName")
	if err != nil {
		return "", "", err
	}
	version, err := args.String("originVersion")
	if err != nil {
		return "", "", err
	}
	return name, version, nil
}

func (d *Dispatcher) addSessionProperty(_ context.Context, args Args) (any, error) {
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}
	value, err := args.String("value")
	if err != nil {
		return nil, err
	}
	d.sdk.AddSessionProperty(name, value)
	return nil, nil
}

func (d *Dispatcher) setIAPReportingEnabled(context.Context, Args) (any, error) {
	d.logger.Warn("setIAPReportingEnabled is only supported on iOS")
	return nil, nil
}

func (d *Dispatcher) setGppConsent(_ context.Context, args Args) (any, error) {
	gpp, err := args.String("gppString")
	if err != nil {
		return nil, err
	}
	ids, err := args.Ints("gppSectionIds")
	if err != nil {
		return nil, err
	}
	d.sdk.SetGppConsent(gpp, dedupe(ids))
	return nil, nil
}

type privacyCallback struct {
	d *Dispatcher
}

func (c privacyCallback) Success() {
	c.d.logger.Debug("privacy dashboard opened")
}

func (c privacyCallback) Failure() {
	c.d.logger.Warn("privacy dashboard failed to open")
}

func (d *Dispatcher) openPrivacyDashboard(context.Context, Args) (any, error) {
	if d.appContext == nil {
		d.logger.Warn("application context is not available to open the privacy dashboard")
		return nil, nil
	}
	if err := d.sdk.OpenPrivacyDashboard(d.appContext, privacyCallback{d: d}); err != nil {
		return nil, fmt.Errorf("open privacy dashboard: %w", err)
	}
	return nil, nil
}

func (d *Dispatcher) userPropertyValue(fn func(name string, values []string)) handlerFunc {
	return func(_ context.Context, args Args) (any, error) {
		name, err := args.String("propertyName")
		if err != nil {
			return nil, err
		}
		value, err := args.String("propertyValue")
		if err != nil {
			return nil, err
		}
		fn(name, []string{value})
		return nil, nil
	}
}

func (d *Dispatcher) userPropertyValues(fn func(name string, values []string)) handlerFunc {
	return func(_ context.Context, args Args) (any, error) {
		name, err := args.String("propertyName")
		if err != nil {
			return nil, err
		}
		values, err := args.Strings("propertyValues")
		if err != nil {
			return nil, err
		}
		fn(name, values)
		return nil, nil
	}
}

func (d *Dispatcher) removeUserProperty(_ context.Context, args Args) (any, error) {
	name, err := args.String("propertyName")
	if err != nil {
		return nil, err
	}
	d.sdk.RemoveUserProperty(name, nil)
	return nil, nil
}

func (d *Dispatcher) startResourceLogger(context.Context, Args) (any, error) {
	rl := d.sdk.NewResourceLogger()
	d.mu.Lock()
	d.resourceLogger = rl
	d.mu.Unlock()
	return nil, nil
}

func (d *Dispatcher) logResourceLogger(_ context.Context, args Args) (any, error) {
	id, err := args.String("id")
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	rl := d.resourceLogger
	d.mu.Unlock()
	if rl == nil {
		d.logger.Warn("resource logger not started", "id", id)
		return nil, nil
	}
	rl.LogEvent(id)
	return nil, nil
}

// getConfigString reads through to the SDK on every call; activation
// can change values without the bridge seeing an event.
func (d *Dispatcher) getConfigString(_ context.Context, args Args) (any, error) {
	key, err := args.String("key")
	if err != nil {
		return nil, err
	}
	def, _ := args.OptString("defaultValue")
	return d.sdk.Config().GetString(key, def), nil
}

func (d *Dispatcher) getPublisherData(context.Context, Args) (any, error) {
	return d.sdk.Segmentation().PublisherData(), nil
}

func (d *Dispatcher) willHandleMessage(_ context.Context, args Args) (any, error) {
	willHandle, err := args.Bool("willHandle")
	if err != nil {
		return nil, err
	}
	if d.decide == nil {
		d.logger.Debug("willHandleMessage without messaging relay", "willHandle", willHandle)
		return nil, nil
	}
	d.decide(willHandle)
	return nil, nil
}
