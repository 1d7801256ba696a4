package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-companion/internal/locator"
	"github.com/i474232898/weather-companion/internal/settings"
	"github.com/i474232898/weather-companion/internal/store"
	"github.com/i474232898/weather-companion/internal/viewmodel"
	"github.com/i474232898/weather-companion/internal/weather"
)

var validate = validator.New()

// Pager is the view-model surface the handlers drive.
type Pager interface {
	State() viewmodel.State
	OnClickRefresh(ctx context.Context) error
	OnPageChanged(index int) (weather.Color, error)
	AddLocation(ctx context.Context, name string, dbIndex int, latitude, longitude float64) (weather.Location, error)
	EnableGPS(ctx context.Context, consent bool) (bool, error)
}

type SettingsReader interface {
	Snapshot(ctx context.Context) (settings.AppSettings, error)
}

// Deps are what the handlers need.
type Deps struct {
	Pager    Pager
	History  *store.SnapshotCache
	Settings SettingsReader
	Device   *locator.Device
}

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(deps.Pager.State())
	})

	v1.Get("/pages", func(c *fiber.Ctx) error {
		s := deps.Pager.State()
		return c.JSON(fiber.Map{
			"page":       s.Page,
			"loading":    s.Loading,
			"background": s.Background.String(),
			"cards":      s.Cards(),
		})
	})

	v1.Put("/pages/current", func(c *fiber.Ctx) error {
		var req pageRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		color, err := deps.Pager.OnPageChanged(*req.Index)
		if err != nil {
			if errors.Is(err, viewmodel.ErrPageOutOfRange) {
				return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to change page")
		}

		return c.JSON(fiber.Map{
			"page":       *req.Index,
			"background": color.String(),
		})
	})

	v1.Post("/refresh", func(c *fiber.Ctx) error {
		if err := deps.Pager.OnClickRefresh(c.UserContext()); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load locations")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"cycle": deps.Pager.State().Cycle,
		})
	})

	v1.Post("/locations", func(c *fiber.Ctx) error {
		var req addLocationRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		loc, err := deps.Pager.AddLocation(c.UserContext(), req.CityName, *req.DBIndex, *req.Latitude, *req.Longitude)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to add location")
		}
		return c.Status(fiber.StatusCreated).JSON(loc)
	})

	v1.Get("/locations/:idx/history", func(c *fiber.Ctx) error {
		idx, err := c.ParamsInt("idx")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "idx must be an integer")
		}

		snapshots, err := deps.History.History(idx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		latest, err := deps.History.Latest(idx)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"idx":       idx,
			"latest":    latest,
			"snapshots": snapshots,
		})
	})

	v1.Post("/gps", func(c *fiber.Ctx) error {
		var req gpsRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		enabled, err := deps.Pager.EnableGPS(c.UserContext(), *req.Consent)
		if err != nil && !enabled {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to enable gps")
		}
		return c.JSON(fiber.Map{"enabled": enabled})
	})

	v1.Get("/device/position", func(c *fiber.Ctx) error {
		resp := fiber.Map{
			"authorized": deps.Device.Authorized(),
			"reportedAt": nil,
		}
		if at := deps.Device.ReportedAt(); !at.IsZero() {
			resp["reportedAt"] = at
		}

		pos, err := deps.Device.Current(c.UserContext())
		switch {
		case err == nil:
			resp["latitude"] = pos.Latitude
			resp["longitude"] = pos.Longitude
		case errors.Is(err, locator.ErrPermissionDenied), errors.Is(err, locator.ErrUnavailable):
			// No position to show.
		default:
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read device position")
		}
		return c.JSON(resp)
	})

	v1.Put("/device/position", func(c *fiber.Ctx) error {
		var req positionRequest
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}

		deps.Device.Report(locator.Coords{Latitude: *req.Latitude, Longitude: *req.Longitude})
		if req.Authorized != nil {
			deps.Device.SetAuthorized(*req.Authorized)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/settings", func(c *fiber.Ctx) error {
		s, err := deps.Settings.Snapshot(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read settings")
		}
		return c.JSON(s)
	})
}

type pageRequest struct {
	Index *int `json:"index" validate:"required,min=0"`
}

type addLocationRequest struct {
	CityName  string   `json:"cityName" validate:"required,max=100"`
	DBIndex   *int     `json:"dbIndex" validate:"required,min=0"`
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

type gpsRequest struct {
	Consent *bool `json:"consent" validate:"required"`
}

type positionRequest struct {
	Latitude   *float64 `json:"latitude" validate:"required,latitude"`
	Longitude  *float64 `json:"longitude" validate:"required,longitude"`
	Authorized *bool    `json:"authorized"`
}

func bindAndValidate(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
