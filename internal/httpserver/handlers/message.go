package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pocketsnooze/snoozerd/internal/domain"
	"github.com/pocketsnooze/snoozerd/internal/httpserver/deps"
	"github.com/pocketsnooze/snoozerd/internal/pocket"
)

// Message actions form a closed tagged union; anything else is rejected.
const (
	ActionStartAuthentication  = "start_authentication"
	ActionFinishAuthentication = "finish_authentication"
	ActionIsAuthenticated      = "is_authenticated"
	ActionSync                 = "sync"
	ActionSnooze               = "snooze"
	ActionUnsnooze             = "unsnooze"
	ActionArchive              = "archive"
	ActionListSnoozed          = "list_snoozed"
	ActionGetSettings          = "get_settings"
	ActionSetSettings          = "set_settings"
)

// message is one request from a UI client. Fields beyond Action are only
// read for the actions that declare them.
type message struct {
	Action         string           `json:"action"`
	Code           string           `json:"code,omitempty"`
	Force          bool             `json:"force,omitempty"`
	URL            string           `json:"url,omitempty"`
	UntilTimestamp int64            `json:"untilTimestamp,omitempty"`
	ItemID         string           `json:"itemId,omitempty"`
	Settings       *domain.Settings `json:"settings,omitempty"`
}

// messageError is the structured failure value crossing the boundary. Plain
// errors do not survive serialization, so clients rebuild them from this.
type messageError struct {
	Name               string `json:"name"`
	Message            string `json:"message"`
	RemoteErrorContext string `json:"remoteErrorContext"`
}

type messageResponse struct {
	OK     bool          `json:"ok"`
	Result any           `json:"result,omitempty"`
	Error  *messageError `json:"error,omitempty"`
}

// Message dispatches the message contract between UI clients and the core.
func Message(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeError(w, http.StatusBadRequest, &messageError{
				Name:               "BadRequest",
				Message:            "malformed message payload",
				RemoteErrorContext: pocket.XErrorUnknown,
			})
			return
		}

		result, err := dispatch(d, r, msg)
		if err != nil {
			writeError(w, statusFor(err), toMessageError(err))
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{OK: true, Result: result})
	}
}

func dispatch(d deps.Deps, r *http.Request, msg message) (any, error) {
	ctx := r.Context()

	switch msg.Action {
	case ActionStartAuthentication:
		url, err := d.Auth.StartAuthentication(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]string{"authorizeUrl": url}, nil

	case ActionFinishAuthentication:
		if err := d.Auth.FinishAuthentication(ctx, msg.Code); err != nil {
			return nil, err
		}
		return nil, nil

	case ActionIsAuthenticated:
		ok, err := d.Auth.IsAuthenticated(ctx)
		if err != nil {
			return nil, err
		}
		return ok, nil

	case ActionSync:
		return nil, d.Snoozes.Sync(ctx, msg.Force)

	case ActionSnooze:
		return nil, d.Snoozes.Snooze(ctx, msg.URL, msg.UntilTimestamp)

	case ActionUnsnooze:
		return nil, d.Snoozes.Unsnooze(ctx, msg.ItemID)

	case ActionArchive:
		return nil, d.Snoozes.Archive(ctx, msg.ItemID)

	case ActionListSnoozed:
		return d.Snoozes.ListSnoozed(ctx)

	case ActionGetSettings:
		return d.Settings.Settings(ctx, d.SettingsDefaults)

	case ActionSetSettings:
		if msg.Settings == nil || !msg.Settings.Validate() {
			return nil, &badMessageError{reason: "invalid settings"}
		}
		return nil, d.Settings.SetSettings(ctx, *msg.Settings)

	default:
		return nil, &badMessageError{reason: "unknown action: " + msg.Action}
	}
}

type badMessageError struct {
	reason string
}

func (e *badMessageError) Error() string { return e.reason }

// toMessageError maps a core failure into the wire shape. Pocket errors keep
// their taxonomy name and X-Error context; everything else degrades to a
// generic error with an unknown context.
func toMessageError(err error) *messageError {
	if re, ok := pocket.AsRequestError(err); ok {
		return &messageError{
			Name:               re.Name(),
			Message:            re.Message,
			RemoteErrorContext: re.XError,
		}
	}
	var bad *badMessageError
	if errors.As(err, &bad) {
		return &messageError{
			Name:               "BadRequest",
			Message:            bad.reason,
			RemoteErrorContext: pocket.XErrorUnknown,
		}
	}
	return &messageError{
		Name:               "Error",
		Message:            err.Error(),
		RemoteErrorContext: pocket.XErrorUnknown,
	}
}

func statusFor(err error) int {
	if re, ok := pocket.AsRequestError(err); ok {
		if re.Kind == pocket.KindAuth {
			return http.StatusUnauthorized
		}
		return http.StatusBadGateway
	}
	var bad *badMessageError
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msgErr *messageError) {
	writeJSON(w, status, messageResponse{OK: false, Error: msgErr})
}
