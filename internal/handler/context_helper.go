package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/membership-api/internal/models"
	"github.com/noah-isme/membership-api/internal/service"
	appErrors "github.com/noah-isme/membership-api/pkg/errors"
	"github.com/noah-isme/membership-api/pkg/pagination"
)

// listConfig bounds page sizes for list endpoints.
type listConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// pageParams reads page, page_size and limit. ok is false when none was
// supplied, in which case the whole list is returned unpaged.
func pageParams(c *gin.Context) (params pagination.Params, ok bool, err error) {
	for _, key := range []string{"page", "page_size", "limit"} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		value, convErr := strconv.Atoi(raw)
		if convErr != nil || value < 0 {
			return pagination.Params{}, false, appErrors.Validation(key + " must be a non-negative integer")
		}
		ok = true
		switch key {
		case "page":
			params.Page = value
		case "page_size":
			params.PageSize = value
		case "limit":
			params.Limit = value
		}
	}
	return params, ok, nil
}

// paginate applies page params to items and returns the page plus its
// envelope metadata. Without params the full list is returned.
func paginate[T any](c *gin.Context, items []T, cfg listConfig) ([]T, *models.Pagination, error) {
	params, ok, err := pageParams(c)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return items, nil, nil
	}
	res := pagination.Paginate(items, params.Normalize(cfg.DefaultPageSize, cfg.MaxPageSize))
	return res.Items, &models.Pagination{
		Page:       res.Page,
		PageSize:   res.PageSize,
		TotalCount: res.TotalCount,
		TotalPages: res.TotalPages,
		Limit:      res.Limit,
		ViewAll:    res.ViewAll,
	}, nil
}

// bindError converts a JSON binding failure into a validation error. A
// non-string phone gets the phone rule message and a non-numeric shift id the
// shift message.
func bindError(err error, phoneMsg string) error {
	if errors.Is(err, service.ErrInvalidShiftRef) {
		return appErrors.Validation(service.MsgInvalidShift)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "phone" {
		return appErrors.Validation(phoneMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
}
