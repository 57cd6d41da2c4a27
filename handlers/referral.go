package handlers

import (
	"bytes"
	"html/template"
	"net/url"

	"waitlist-referral-system/models"
	"waitlist-referral-system/services"

	"github.com/gofiber/fiber/v2"
)

const defaultInviterName = "an Ampy creator"

var shareTemplate = template.Must(template.New("share").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:url" content="{{.TargetURL}}">
<meta property="og:type" content="website">
{{- if .ImageURL}}
<meta property="og:image" content="{{.ImageURL}}">
<meta name="twitter:image" content="{{.ImageURL}}">
{{- end}}
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:title" content="{{.Title}}">
<meta name="twitter:description" content="{{.Description}}">
<meta http-equiv="refresh" content="1; url={{.TargetURL}}">
</head>
<body>
<p>Redirecting to <a href="{{.TargetURL}}">{{.TargetURL}}</a></p>
</body>
</html>
`))

type sharePage struct {
	Title       string
	Description string
	TargetURL   string
	ImageURL    string
}

func SetupReferralRoutes(app *fiber.App, api fiber.Router, d *Deps) {
	app.Get("/r/:code", referralRedirect(d))
	api.Get("/redirect/:code", referralRedirect(d))
	app.Get("/share/:code", sharePreview(d))
}

// referralRedirect logs the click without waiting on it and always
// redirects, whether or not the code exists.
func referralRedirect(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Params("code")
		d.Attribution.TrackClick(raw)
		return c.Redirect("/?ref="+url.QueryEscape(services.Normalize(raw)), fiber.StatusFound)
	}
}

func sharePreview(d *Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := services.Normalize(c.Params("code"))

		inviter := defaultInviterName
		owner, err := d.Attribution.ResolveOwner(c.UserContext(), code)
		if err != nil {
			return err
		}
		if owner != nil && owner.Name != "" {
			inviter = models.FirstName(owner.Name)
		}

		page := sharePage{
			Title:       "Join Ampy - beta waitlist",
			Description: inviter + " invited you. Earn points and priority by sharing your link.",
			TargetURL:   d.Config.PublicURL + "/?ref=" + url.QueryEscape(code),
			ImageURL:    d.Config.OGImageURL,
		}
		var buf bytes.Buffer
		if err := shareTemplate.Execute(&buf, page); err != nil {
			return err
		}

		c.Set(fiber.HeaderCacheControl, "public, max-age=300")
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(buf.Bytes())
	}
}
