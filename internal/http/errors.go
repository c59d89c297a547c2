package httpapi

import (
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"repairhub/internal/domain"
)

type errorBody struct {
	Kind    domain.ErrorKind     `json:"kind"`
	Message string               `json:"message"`
	Details []domain.ErrorDetail `json:"details,omitempty"`
}

// errorResponse единый конверт ошибки
type errorResponse struct {
	Error errorBody `json:"error"`
}

func mapErrorToStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict, domain.KindInvalidTransition, domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorPayload(err error) errorResponse {
	var de *domain.Error
	if !errors.As(err, &de) {
		// внутренние подробности наружу не отдаются
		return errorResponse{Error: errorBody{Kind: domain.KindInternal, Message: "internal error"}}
	}
	msg := de.Message
	if de.Kind == domain.KindStorageUnavailable {
		msg = "storage temporarily unavailable, retry later"
	}
	return errorResponse{Error: errorBody{Kind: de.Kind, Message: msg, Details: de.Details}}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("request_id", c.GetString(ctxRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, errorPayload(err))
}

func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(mapErrorToStatus(err), errorPayload(err))
}

var registerTagName sync.Once

// useJSONFieldNames ошибки валидатора называют поля так же, как JSON
func useJSONFieldNames() {
	registerTagName.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}

// bindError ошибка разбора тела запроса как ValidationError с деталями по полям
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]domain.ErrorDetail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, domain.ErrorDetail{Path: fieldPath(fe), Info: validationMessage(fe)})
		}
		return domain.Validation("validation failed", details...)
	}
	if errors.Is(err, io.EOF) {
		return domain.Validation("request body is required")
	}
	return domain.Validation("malformed request body: " + err.Error())
}

// fieldPath путь без имени корневой структуры запроса
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
