package middleware

import (
	"net/http"
	"strings"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/auth"
)

// RequireMedico garante audience e papel de médico.
func RequireMedico(next http.Handler) http.Handler {
	return requireAudienceRole(auth.AudienceMedico, auth.RoleMedico)(next)
}

// RequirePaciente garante audience e papel de paciente.
func RequirePaciente(next http.Handler) http.Handler {
	return requireAudienceRole(auth.AudiencePaciente, auth.RolePaciente)(next)
}

func requireAudienceRole(audience, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.EqualFold(GetAudience(r.Context()), audience) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "sem acesso")
				return
			}

			for _, have := range GetRoles(r.Context()) {
				if strings.EqualFold(have, role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeError(w, http.StatusForbidden, "FORBIDDEN", "sem acesso")
		})
	}
}
