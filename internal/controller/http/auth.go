package http

import (
	"context"
	"net/http"

	"github.com/atlasov/club_portal/internal/model"
	"go.uber.org/zap"
)

// Заголовок с идентификатором внешней авторизации. Сам вход (OIDC,
// reverse proxy) живёт вне портала, сюда приходит только subject.
const memberTokenHeader = "X-Member-Token"

type ctxKey int

const (
	ctxKeyMember ctxKey = iota
	ctxKeySubject
)

// MemberResolver находит участника по идентификатору авторизации
type MemberResolver interface {
	Identify(ctx context.Context, subject string) (*model.Member, error)
}

// resolveMember кладёт участника и subject в контекст запроса.
// Неизвестный subject не ошибка: такой запрос может быть регистрацией.
func resolveMember(resolver MemberResolver, logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := r.Header.Get(memberTokenHeader)
		if subject == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySubject, subject)

		member, err := resolver.Identify(ctx, subject)
		if err != nil {
			logger.Error("Failed to resolve member token", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if member != nil {
			ctx = context.WithValue(ctx, ctxKeyMember, member)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func memberFrom(r *http.Request) *model.Member {
	member, _ := r.Context().Value(ctxKeyMember).(*model.Member)
	return member
}

func subjectFrom(r *http.Request) string {
	subject, _ := r.Context().Value(ctxKeySubject).(string)
	return subject
}

// requireMember пропускает только опознанных участников
func requireMember(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if memberFrom(r) == nil {
			writeError(w, http.StatusUnauthorized, "member token required")
			return
		}
		next(w, r)
	}
}

// requireManager пропускает администраторов и руководство
func requireManager(next http.HandlerFunc) http.HandlerFunc {
	return requireMember(func(w http.ResponseWriter, r *http.Request) {
		if !memberFrom(r).CanManage() {
			writeError(w, http.StatusForbidden, "manager role required")
			return
		}
		next(w, r)
	})
}

// requireAdmin пропускает только администраторов
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return requireMember(func(w http.ResponseWriter, r *http.Request) {
		if !memberFrom(r).IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	})
}
