package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/blockberries/relay"
	"github.com/blockberries/relay/pipeline"
	"github.com/blockberries/relay/types"

	"github.com/gin-gonic/gin"
)

// Audit messages emitted for a relay request.
const (
	MsgReceived         = "Relay request received"
	MsgBadRequest       = "Relay request rejected"
	MsgValidationFailed = "Transaction validation failed"
	MsgValidated        = "Transaction validated"
	MsgRateLimited      = "Rate limit exceeded"
	MsgSponsored        = "Transaction sponsored"
	MsgRelayFailed      = "Relay failed"
	MsgRelayed          = "Transaction relayed"
	MsgPanic            = "Unhandled panic in request"
)

// maxBodySize bounds the request body.
const maxBodySize = 1 << 20

// RelayRequest is the body of POST /relay.
type RelayRequest struct {
	Transaction string `json:"transaction"`
}

// RelayResponse is the success body of POST /relay.
type RelayResponse struct {
	TxID string `json:"txid"`
}

// ErrorResponse is the failure body of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// requestIDKey stores the correlation id in the gin context.
const requestIDKey = "relay.requestId"

func (s *Server) relay(c *gin.Context) {
	id := s.newRequestID()
	c.Set(requestIDKey, id)
	s.audit.Info(id, MsgReceived,
		types.F("remote", c.ClientIP()),
		types.F("network", s.cfg.Network.Name),
	)

	trace := pipeline.NewTrace()

	trace.Enter(pipeline.StageParse)
	raw, err := parseBody(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		f := trace.Abort(err)
		s.audit.Warn(id, MsgBadRequest, failureFields(f)...)
		s.writeError(c, f)
		return
	}

	trace.Enter(pipeline.StageValidate)
	v, err := pipeline.Validate(raw)
	if err != nil {
		f := trace.Abort(err)
		s.audit.Warn(id, MsgValidationFailed, failureFields(f)...)
		s.writeError(c, f)
		return
	}
	sender := v.SenderKey()
	s.audit.Debug(id, MsgValidated,
		types.F("sender", sender),
		types.F("nonce", v.Tx.Auth.Origin.Nonce),
	)

	trace.Enter(pipeline.StageRateLimit)
	admitted, err := s.limiter.Admit(c.Request.Context(), sender)
	switch {
	case err != nil:
		f := trace.Abort(relay.Wrap(relay.KindInternal, err))
		s.audit.Error(id, MsgRelayFailed, append(failureFields(f), types.F("sender", sender))...)
		s.writeError(c, f)
		return
	case !admitted:
		rl := s.cfg.RateLimit
		f := trace.Abort(relay.Errorf(relay.KindRateLimited,
			"Maximum %d requests per %d seconds", rl.Capacity, int64(rl.Window.Seconds())))
		s.audit.Warn(id, MsgRateLimited, append(failureFields(f), types.F("sender", sender))...)
		s.writeError(c, f)
		return
	}

	outcome, err := s.orch.Relay(c.Request.Context(), trace, v.Tx,
		pipeline.OnSponsored(func(tx *types.Transaction) {
			sp := tx.Auth.Sponsor
			s.audit.Debug(id, MsgSponsored,
				types.F("sender", sender),
				types.F("sponsor", sp.Signer.String()),
				types.F("fee", sp.Fee),
				types.F("sponsorNonce", sp.Nonce),
			)
		}),
	)
	if err != nil {
		s.audit.Error(id, MsgRelayFailed, append(failureFields(err), types.F("sender", sender))...)
		s.writeError(c, err)
		return
	}

	s.audit.Info(id, MsgRelayed,
		types.F("sender", sender),
		types.F("txid", outcome.TxID),
		types.F("fee", outcome.Fee),
	)
	c.JSON(http.StatusOK, RelayResponse{TxID: outcome.TxID})
}

// parseBody extracts the transaction field. A body that is not a JSON
// object, or whose transaction field is missing, empty or not a
// string, is a BadRequest. A body over maxBodySize is reported as too
// large rather than as unparsable.
func parseBody(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &relay.Error{
				Kind:   relay.KindBadRequest,
				Public: "Invalid request body",
				Detail: fmt.Sprintf("request body too large (limit %d bytes)", tooLarge.Limit),
				Err:    err,
			}
		}
		return "", &relay.Error{Kind: relay.KindBadRequest, Public: "Invalid request body", Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", &relay.Error{Kind: relay.KindBadRequest, Public: "Invalid request body", Err: err}
	}
	rawTx, ok := fields["transaction"]
	if !ok {
		return "", &relay.Error{Kind: relay.KindBadRequest}
	}
	var tx string
	if err := json.Unmarshal(rawTx, &tx); err != nil || tx == "" {
		return "", &relay.Error{Kind: relay.KindBadRequest}
	}
	return tx, nil
}

// failureFields describes err for an audit event.
func failureFields(err error) []types.Field {
	fields := make([]types.Field, 0, 4)
	var f *pipeline.Failure
	if errors.As(err, &f) {
		fields = append(fields, types.F("stage", f.Stage.String()))
	}
	kind := relay.KindOf(err)
	fields = append(fields, types.F("kind", kind.String()))
	if e, ok := relay.AsError(err); ok && e.Detail != "" {
		fields = append(fields, types.F("detail", e.Detail))
	} else if !ok {
		fields = append(fields, types.F("detail", err.Error()))
	}
	return fields
}

// writeError writes the JSON error body for err. Internal errors get
// the generic message and no details.
func (s *Server) writeError(c *gin.Context, err error) {
	e, ok := relay.AsError(err)
	if !ok {
		e = relay.Wrap(relay.KindInternal, err)
	}
	body := ErrorResponse{Error: e.Message()}
	if e.Kind != relay.KindInternal {
		body.Details = e.Detail
	}
	if e.Kind.Status() >= http.StatusInternalServerError {
		s.logger.Error("relay failed",
			"request_id", c.GetString(requestIDKey),
			"kind", e.Kind.String(),
			"error", fmt.Sprint(err),
		)
	}
	c.JSON(e.Kind.Status(), body)
}

// recovered handles a panic from any handler.
func (s *Server) recovered(c *gin.Context, rec any) {
	id := c.GetString(requestIDKey)
	if id == "" {
		id = s.newRequestID()
	}
	s.logger.Error("panic in handler", "request_id", id, "path", c.Request.URL.Path, "panic", rec)
	s.audit.Error(id, MsgPanic,
		types.F("kind", relay.KindInternal.String()),
		types.F("path", c.Request.URL.Path),
		types.F("panic", rec),
	)
	if c.Writer.Written() {
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: relay.KindInternal.Message()})
}
