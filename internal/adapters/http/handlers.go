package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/chalkin/chalkin/internal/core/domain"
	"github.com/chalkin/chalkin/internal/core/usecases"
)

// UserHeader carries the authenticated user id set by the upstream gateway.
const UserHeader = "X-User-ID"

// RequireUser rejects requests that carry no user id.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(UserHeader))
		if id == "" {
			return errUnauthorized(c, "missing "+UserHeader+" header")
		}
		// Header values point into a reused request buffer.
		c.Locals("user_id", utils.CopyString(id))
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

// ---- Tracks ----

// ConvertTrackHandler converts a JSON conversion request into a GPX file.
// With ?format=json the rendered track is returned instead.
func ConvertTrackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req domain.ConvertRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		rt, err := deps.Tracks.Convert(c.UserContext(), req)
		if err != nil {
			return errFromService(c, err)
		}
		return sendTrack(c, rt)
	}
}

// ShapeGPXHandler converts a named shape using query parameters.
// slug overrides the :slug route parameter when set.
func ShapeGPXHandler(deps *Dependencies, slug string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := convertRequestFromQuery(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		req.ShapeSlug = slug
		if req.ShapeSlug == "" {
			req.ShapeSlug = c.Params("slug")
		}
		rt, err := deps.Tracks.Convert(c.UserContext(), req)
		if err != nil {
			return errFromService(c, err)
		}
		return sendTrack(c, rt)
	}
}

func sendTrack(c *fiber.Ctx, rt *domain.RenderedTrack) error {
	if rt.Cached {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	if c.Query("format") == "json" {
		return c.JSON(rt)
	}
	c.Attachment(FileName(rt.Name))
	c.Set(fiber.HeaderContentType, "application/gpx+xml")
	return c.Send(rt.GPX)
}

// FileName turns a track name into a safe GPX file name.
func FileName(name string) string {
	s := slugify(name)
	if s == "" {
		s = "track"
	}
	return s + ".gpx"
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func convertRequestFromQuery(c *fiber.Ctx) (domain.ConvertRequest, error) {
	req := domain.ConvertRequest{
		Name:        c.Query("name"),
		Description: c.Query("description"),
	}
	var err error
	if req.CenterLat, err = queryFloat(c, "lat"); err != nil {
		return req, err
	}
	if req.CenterLon, err = queryFloat(c, "lon"); err != nil {
		return req, err
	}
	if req.ScaleMeters, err = queryFloat(c, "scale"); err != nil {
		return req, err
	}
	if req.NumPoints, err = queryInt(c, "points"); err != nil {
		return req, err
	}
	if req.DurationSeconds, err = queryInt(c, "duration"); err != nil {
		return req, err
	}
	if s := c.Query("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return req, fmt.Errorf("start must be an RFC 3339 timestamp")
		}
		req.Start = &t
	}
	return req, nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", key)
	}
	return &v, nil
}

func queryInt(c *fiber.Ctx, key string) (*int, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}

// ---- Shapes ----

// ListShapesHandler returns built-in and stored shapes.
func ListShapesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shapes, err := deps.Shapes.List(c.UserContext())
		if err != nil {
			return errFromService(c, err)
		}

		pg := pageParams(c, 50, 200)
		shapes = paginate(shapes, &pg)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: shapes, Pagination: pg})
	}
}

// GetShapeHandler returns a shape by slug.
func GetShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		shape, err := deps.Shapes.Get(c.UserContext(), c.Params("slug"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(shape)
	}
}

// CreateShapeHandler stores a shape from a JSON path description.
func CreateShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in usecases.NewShape
		if err := c.BodyParser(&in); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		shape, err := deps.Shapes.Create(c.UserContext(), in)
		if err != nil {
			return errFromService(c, err)
		}
		c.Location("/v1/shapes/" + shape.Slug)
		return c.Status(fiber.StatusCreated).JSON(shape)
	}
}

// UploadShapeSVGHandler stores a shape from an uploaded SVG document.
func UploadShapeSVGHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return errBadRequest(c, "multipart field file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return errBadRequest(c, "cannot read uploaded file")
		}
		defer f.Close()

		slug := c.FormValue("slug")
		if slug == "" {
			slug = slugify(strings.TrimSuffix(fh.Filename, ".svg"))
		}
		shape, err := deps.Shapes.CreateFromSVG(c.UserContext(), slug, c.FormValue("name"), f)
		if err != nil {
			return errFromService(c, err)
		}
		c.Location("/v1/shapes/" + shape.Slug)
		return c.Status(fiber.StatusCreated).JSON(shape)
	}
}

// DeleteShapeHandler removes a stored shape.
func DeleteShapeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Shapes.Delete(c.UserContext(), c.Params("slug")); err != nil {
			return errFromService(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---- Strava ----

// StravaConnectHandler returns the Strava authorization URL for the user.
func StravaConnectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := deps.Strava.AuthURL(currentUser(c))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(fiber.Map{"auth_url": u})
	}
}

// StravaCallbackHandler completes the OAuth flow and sends the browser back
// to the app.
func StravaCallbackHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("error") != "" {
			if deps.StravaReturnURL != "" {
				return c.Redirect(withQuery(deps.StravaReturnURL, "strava_error", "denied"))
			}
			return newError(c, 400, "strava_denied", "strava authorization was denied")
		}
		if c.Query("code") == "" || c.Query("state") == "" {
			return errBadRequest(c, "missing code or state")
		}

		conn, err := deps.Strava.HandleCallback(c.UserContext(), c.Query("code"), c.Query("state"))
		if err != nil {
			return errFromService(c, err)
		}
		if deps.StravaReturnURL != "" {
			return c.Redirect(withQuery(deps.StravaReturnURL, "strava_connected", "true"))
		}
		return c.JSON(fiber.Map{"connected": true, "athlete_id": conn.AthleteID})
	}
}

// StravaStatusHandler reports the user's Strava connection.
func StravaStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := deps.Strava.Status(c.UserContext(), currentUser(c))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(st)
	}
}

// StravaDisconnectHandler forgets the user's Strava tokens.
func StravaDisconnectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Strava.Disconnect(c.UserContext(), currentUser(c)); err != nil {
			return errFromService(c, err)
		}
		return c.JSON(fiber.Map{"message": "strava disconnected"})
	}
}

// StravaRefreshHandler renews the user's Strava access token.
func StravaRefreshHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		st, err := deps.Strava.RefreshToken(c.UserContext(), currentUser(c))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(st)
	}
}

func withQuery(base, key, value string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// ---- Exports ----

// StartExportHandler starts a Strava export.
func StartExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.ExportRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		exp, err := deps.Exports.Start(c.UserContext(), currentUser(c), req)
		if err != nil {
			return errFromService(c, err)
		}
		c.Location("/v1/exports/" + exp.ID)
		return c.Status(fiber.StatusAccepted).JSON(exp)
	}
}

// ListExportsHandler lists the user's exports, newest first.
func ListExportsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageParams(c, 20, 100)
		exports, err := deps.Exports.List(c.UserContext(), currentUser(c), pg.Limit, pg.Offset)
		if err != nil {
			return errFromService(c, err)
		}
		if exports == nil {
			exports = []domain.Export{}
		}
		return c.JSON(exports)
	}
}

// GetExportHandler returns one of the user's exports.
func GetExportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		exp, err := deps.Exports.Get(c.UserContext(), currentUser(c), c.Params("id"))
		if err != nil {
			return errFromService(c, err)
		}
		return c.JSON(exp)
	}
}
