package binding

import (
	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// defaultBrightness is restored by power-on until a brightness is known.
const defaultBrightness = 50

// BrightnessPower binds a light's On and Brightness characteristics to its
// brightness property. On is derived: the light is on while its brightness
// is above zero. Turning it on restores the last non-zero brightness.
type BrightnessPower struct {
	env Env
	dev device.Device
	dim device.Dimmable
	sw  device.Switchable

	power      *accessory.Characteristic
	brightness *accessory.Characteristic

	level int
	on    bool
	gen   uint64
}

// BindBrightnessPower wires power and brightness and seeds them from one
// brightness read.
func BindBrightnessPower(env Env, power, brightness *accessory.Characteristic,
	dev device.Device, sw device.Switchable, dim device.Dimmable) *BrightnessPower {
	b := &BrightnessPower{
		env:        env,
		dev:        dev,
		dim:        dim,
		sw:         sw,
		power:      power,
		brightness: brightness,
		level:      defaultBrightness,
	}

	power.OnGet(func(reply func(any, error)) { reply(b.on, nil) })
	power.OnSet(func(v any, done func(error)) {
		on, ok := v.(bool)
		if !ok {
			done(ErrInvalidValue)
			return
		}
		b.SetPower(on, done)
	})
	brightness.OnGet(func(reply func(any, error)) { reply(b.level, nil) })
	brightness.OnSet(func(v any, done func(error)) {
		level, ok := v.(int)
		if !ok {
			done(ErrInvalidValue)
			return
		}
		b.SetBrightness(level, done)
	})

	dev.On(device.EventBrightnessChanged, func(p device.Payload) {
		env.Loop.Post(func() {
			level, err := device.AsInt(p.Value)
			if err != nil {
				env.Logger.Warn("ignoring undecodable push",
					"binding", "brightness", "device", dev.ID(), "error", err)
				return
			}
			b.Push(level)
		})
	})

	b.seed()
	return b
}

// Level returns the last non-zero brightness.
func (b *BrightnessPower) Level() int { return b.level }

// On reports the derived power state.
func (b *BrightnessPower) On() bool { return b.on }

// SetPower turns the light on at the remembered brightness, or off without
// touching the remembered brightness.
func (b *BrightnessPower) SetPower(on bool, done func(error)) {
	if on == b.on {
		done(nil)
		return
	}
	b.on = on
	b.gen++

	ctx := b.env.Context
	if on {
		level := b.level
		b.env.Logger.Debug("restoring brightness", "device", b.dev.ID(), "brightness", level)
		b.await(func() error { return b.dim.ChangeBrightness(ctx, level) }, done)
		return
	}
	b.env.Logger.Debug("turning light off", "device", b.dev.ID())
	b.await(func() error { return b.sw.ChangePower(ctx, false) }, done)
}

// SetBrightness writes level. Zero turns the light off but keeps the
// remembered brightness, which Brightness goes on reporting.
func (b *BrightnessPower) SetBrightness(level int, done func(error)) {
	on := level > 0
	if !on {
		done = b.keepLevel(done)
	}
	if on == b.on && (!on || level == b.level) {
		done(nil)
		return
	}

	if on {
		b.level = level
	}
	if on != b.on {
		b.on = on
		b.power.UpdateValue(on)
	}
	b.gen++

	ctx := b.env.Context
	b.env.Logger.Debug("setting brightness", "device", b.dev.ID(), "brightness", level)
	b.await(func() error { return b.dim.ChangeBrightness(ctx, level) }, done)
}

// Push applies a brightness reported by the device. Zero is a power-off and
// leaves the Brightness characteristic alone.
func (b *BrightnessPower) Push(level int) {
	b.gen++
	if level <= 0 {
		b.env.Logger.Debug("brightness is 0, light is off", "device", b.dev.ID())
		b.on = false
		b.power.UpdateValue(false)
		return
	}

	b.level = level
	b.brightness.UpdateValue(level)
	if !b.on {
		b.on = true
		b.power.UpdateValue(true)
	}
}

// keepLevel re-pushes the remembered brightness once a zero write succeeds,
// so the written 0 is not echoed as the brightness.
func (b *BrightnessPower) keepLevel(done func(error)) func(error) {
	return func(err error) {
		if err == nil {
			b.brightness.UpdateValue(b.level)
		}
		done(err)
	}
}

func (b *BrightnessPower) await(write func() error, done func(error)) {
	loop.Await(b.env.Loop, func() (struct{}, error) {
		return struct{}{}, write()
	}, func(_ struct{}, err error) {
		if err != nil {
			b.env.Logger.Warn("device write failed",
				"binding", "brightness", "device", b.dev.ID(), "error", err)
		}
		done(err)
	})
}

func (b *BrightnessPower) seed() {
	issued := b.gen
	ctx := b.env.Context
	loop.Await(b.env.Loop, func() (int, error) {
		return b.dim.Brightness(ctx)
	}, func(level int, err error) {
		if err != nil {
			b.env.Logger.Warn("initial read failed",
				"binding", "brightness", "device", b.dev.ID(), "error", err)
			return
		}
		if b.gen != issued {
			return
		}
		b.Push(level)
	})
}

// Light groups the bindings of one Lightbulb service. Power is set when the
// light has no brightness control; Brightness and Color are optional.
type Light struct {
	Power      *TwoWay[bool]
	Brightness *BrightnessPower
	Color      *Color
}

// WireLight adds a Lightbulb service. Lights tagged brightness and dimmable
// get brightness-derived power, others a plain power binding; colorable
// lights also get hue and saturation.
func WireLight(env Env, acc *accessory.Accessory, dev device.Device, sw device.Switchable) *Light {
	env.Logger.Debug("adding light service", "device", dev.ID())

	s := acc.FindOrCreateService(accessory.ServiceLightbulb, "Light")
	light := &Light{}

	dim, dimmable := dev.(device.Dimmable)
	switch {
	case device.Matches(dev, device.TagBrightness, device.TagDimmable) && dimmable:
		light.Brightness = BindBrightnessPower(env,
			s.Characteristic(accessory.CharOn), s.Characteristic(accessory.CharBrightness),
			dev, sw, dim)
	default:
		if device.Matches(dev, device.TagBrightness, device.TagDimmable) {
			env.Logger.Warn("device is tagged dimmable but cannot dim", "device", dev.ID())
		}
		light.Power = BindPower(env, s.Characteristic(accessory.CharOn), dev, sw)
	}

	if device.Matches(dev, device.TagColorable) {
		col, ok := dev.(device.Colorable)
		if !ok {
			env.Logger.Warn("device is tagged colorable but has no colour control", "device", dev.ID())
			return light
		}
		level := func() int { return fullBrightness }
		if light.Brightness != nil {
			level = light.Brightness.Level
		}
		light.Color = BindColor(env,
			s.Characteristic(accessory.CharHue), s.Characteristic(accessory.CharSaturation),
			dev, col, level)
	}
	return light
}
