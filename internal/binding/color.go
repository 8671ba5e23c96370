package binding

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/nerrad567/gray-logic-miio/internal/accessory"
	"github.com/nerrad567/gray-logic-miio/internal/device"
	"github.com/nerrad567/gray-logic-miio/internal/loop"
)

// fullBrightness is packed into colour commands for lights without a
// brightness binding.
const fullBrightness = 100

// Color binds a light's Hue and Saturation characteristics. Writes to either
// are collected and sent as one packed colour command.
type Color struct {
	env   Env
	dev   device.Device
	col   device.Colorable
	level func() int
	key   string

	hue        *accessory.Characteristic
	saturation *accessory.Characteristic

	hueValue, satValue float64
	desiredHue         *float64
	desiredSat         *float64
	gen                uint64
}

// BindColor wires hue and saturation, seeding both from one colour read.
// level supplies the brightness packed into colour commands.
func BindColor(env Env, hue, saturation *accessory.Characteristic,
	dev device.Device, col device.Colorable, level func() int) *Color {
	c := &Color{
		env:        env,
		dev:        dev,
		col:        col,
		level:      level,
		key:        "color:" + dev.ID(),
		hue:        hue,
		saturation: saturation,
	}

	hue.OnGet(func(reply func(any, error)) { reply(c.hueValue, nil) })
	saturation.OnGet(func(reply func(any, error)) { reply(c.satValue, nil) })
	hue.OnSet(func(v any, done func(error)) {
		h, ok := v.(float64)
		if !ok {
			done(ErrInvalidValue)
			return
		}
		c.SetHue(h, done)
	})
	saturation.OnSet(func(v any, done func(error)) {
		s, ok := v.(float64)
		if !ok {
			done(ErrInvalidValue)
			return
		}
		c.SetSaturation(s, done)
	})

	dev.On(device.EventColorChanged, func(p device.Payload) {
		env.Loop.Post(func() {
			hsl, err := device.AsHSL(p.Value)
			if err != nil {
				env.Logger.Warn("ignoring undecodable push",
					"binding", "color", "device", dev.ID(), "error", err)
				return
			}
			c.Push(hsl)
		})
	})

	c.seed()
	return c
}

// Hue returns the cached hue in degrees.
func (c *Color) Hue() float64 { return c.hueValue }

// Saturation returns the cached saturation in percent.
func (c *Color) Saturation() float64 { return c.satValue }

// SetHue queues a hue write and completes at once. The colour command
// follows when the batch flushes; its failures are only logged.
func (c *Color) SetHue(h float64, done func(error)) {
	if h != c.hueValue || c.desiredHue != nil {
		c.hueValue = h
		c.desiredHue = &h
		c.enqueue()
	}
	done(nil)
}

// SetSaturation queues a saturation write and completes at once, like
// SetHue.
func (c *Color) SetSaturation(s float64, done func(error)) {
	if s != c.satValue || c.desiredSat != nil {
		c.satValue = s
		c.desiredSat = &s
		c.enqueue()
	}
	done(nil)
}

// Push applies a colour reported by the device.
func (c *Color) Push(hsl device.HSL) {
	c.gen++
	c.hueValue = hsl.Hue
	c.satValue = hsl.Saturation
	c.hue.UpdateValue(hsl.Hue)
	c.saturation.UpdateValue(hsl.Saturation)
}

func (c *Color) enqueue() {
	c.gen++
	c.env.Colors.Schedule(c.key, c.flush)
}

func (c *Color) pending() bool {
	return c.desiredHue != nil || c.desiredSat != nil
}

// flush reads the current colour and sends one command carrying every
// component written until the read returned. Writes arriving while the
// command is in flight start the next batch once it has settled.
func (c *Color) flush(release func()) {
	finish := func() {
		release()
		if c.pending() {
			c.env.Colors.Schedule(c.key, c.flush)
		}
	}

	ctx := c.env.Context
	loop.Await(c.env.Loop, func() (device.HSL, error) {
		return c.col.Color(ctx)
	}, func(current device.HSL, err error) {
		hue, sat := c.desiredHue, c.desiredSat
		c.desiredHue, c.desiredSat = nil, nil
		if err != nil {
			c.env.Logger.Warn("reading current colour failed", "device", c.dev.ID(), "error", err)
			finish()
			return
		}

		target := current
		if hue != nil {
			target.Hue = *hue
		}
		if sat != nil {
			target.Saturation = *sat
		}
		packed := PackRGB(c.level(), target.Hue, target.Saturation)
		c.env.Logger.Debug("setting colour", "device", c.dev.ID(),
			"hue", target.Hue, "saturation", target.Saturation, "rgb", packed)

		loop.Await(c.env.Loop, func() (struct{}, error) {
			return struct{}{}, c.col.SetRGB(ctx, packed)
		}, func(_ struct{}, err error) {
			if err != nil {
				c.env.Logger.Warn("device write failed", "binding", "color", "device", c.dev.ID(), "error", err)
			}
			finish()
		})
	})
}

func (c *Color) seed() {
	issued := c.gen
	ctx := c.env.Context
	loop.Await(c.env.Loop, func() (device.HSL, error) {
		return c.col.Color(ctx)
	}, func(hsl device.HSL, err error) {
		if err != nil {
			c.env.Logger.Warn("initial read failed", "binding", "color", "device", c.dev.ID(), "error", err)
			return
		}
		if c.gen != issued {
			return
		}
		c.Push(hsl)
	})
}

// PackRGB converts hue (degrees) and saturation (percent) at half lightness
// to RGB and packs it with brightness as brightness<<24 | r<<16 | g<<8 | b.
func PackRGB(brightness int, hue, saturation float64) uint32 {
	r, g, b := colorful.Hsl(hue, saturation/100, 0.5).RGB255()
	return uint32(brightness&0xff)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
