package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/abhishekY2401/product-service/pkg/errors"
)

const maxIDsPerQuery = 500

// ParsePathID reads a positive integer id from a chi URL parameter.
func ParsePathID(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "id must be a positive integer").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParseIDList reads a comma separated list of ids. Repeated query keys are
// accepted too (?ids=1&ids=2). Duplicates are dropped, order is kept.
func ParseIDList(r *http.Request, key string) ([]int64, error) {
	values := r.URL.Query()[key]
	ids := []int64{}
	seen := map[int64]struct{}{}
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "ids must be positive integers").WithDetails(map[string]any{"field": key, "value": part})
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) > maxIDsPerQuery {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many ids").WithDetails(map[string]any{"field": key, "max": maxIDsPerQuery})
	}
	return ids, nil
}
