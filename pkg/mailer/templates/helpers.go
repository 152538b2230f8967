package templates

import (
	"context"
	"strings"
	"time"

	"github.com/oksasatya/freshflower-auth/config"
)

const timeLayout = "02 January 2006, 15:04 MST"

// Option pattern
type Option func(*EmailData)

func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format(timeLayout)
	}
}

// NewBaseEmailData fills the shared fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:           name,
		Email:          email,
		RecipientEmail: email,
		Type:           typ,
	}
	if cfg != nil {
		d.CompanyName = cfg.CompanyName
		d.AppName = cfg.AppName
		d.LogoURL = cfg.LogoURL
		d.SupportURL = cfg.SupportURL
		d.LoginURL = cfg.LoginURL
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewWelcomeData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, Welcome, name, email, opts...))
}

func NewLoginNotificationData(cfg *config.Config, name, email string, opts ...Option) map[string]any {
	return ToMap(NewBaseEmailData(cfg, LoginNotification, name, email, opts...))
}

// Localize rewrites the display time in data into the timezone of the
// location resolved for data["IP"], and fills data["Location"] when empty.
// Lookup failures leave data untouched.
func Localize(ctx context.Context, r GeoResolver, data map[string]any) {
	if r == nil || data == nil {
		return
	}
	ip, _ := data["IP"].(string)
	if strings.TrimSpace(ip) == "" {
		return
	}
	g, err := r.Lookup(ctx, ip)
	if err != nil {
		return
	}
	if loc, _ := data["Location"].(string); strings.TrimSpace(loc) == "" {
		if s := FormatGeo(g); s != "" {
			data["Location"] = s
		}
	}
	if strings.TrimSpace(g.Timezone) == "" {
		return
	}
	tz, err := time.LoadLocation(g.Timezone)
	if err != nil {
		return
	}
	if raw, ok := data["TimeAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			data["Time"] = t.In(tz).Format(timeLayout)
		}
	}
}
