package auth

import (
	"fmt"
	"net/http"
	"school_platform/school/schema"
)

func requireRole(check func(user *schema.User) bool, describe string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			user, err := UserFromContext(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}

			if !check(&user) {
				http.Error(w, fmt.Sprintf("user %v is not %v", user.Id, describe), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(hfn)
	}
}

func AdminOnly() func(http.Handler) http.Handler {
	return requireRole(func(user *schema.User) bool {
		return user.IsAdmin()
	}, "an admin")
}

func TeacherOnly() func(http.Handler) http.Handler {
	return requireRole(func(user *schema.User) bool {
		return user.IsTeacher()
	}, "a teacher")
}

func TeacherOrAdminOnly() func(http.Handler) http.Handler {
	return requireRole(func(user *schema.User) bool {
		return user.IsTeacher() || user.IsAdmin()
	}, "a teacher or admin")
}

func ParentOnly() func(http.Handler) http.Handler {
	return requireRole(func(user *schema.User) bool {
		return user.Role == schema.RoleParent
	}, "a parent")
}
