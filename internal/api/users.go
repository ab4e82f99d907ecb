package api

import (
	"errors"
	"net/http"

	"notes/internal/auth"
	"notes/internal/errs"
	"notes/internal/middleware"
	"notes/internal/models"
)

var duplicateMessages = map[string]string{
	"name":  "This name is used. Please enter other name.",
	"email": "This email is used. Please enter other email.",
}

func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index", &pageData{Title: "Home"})
}

func (h *Handlers) RegisterFormHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", &pageData{Title: "Register"})
}

func (h *Handlers) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	in := &models.RegisterInput{
		Name:           r.PostFormValue("name"),
		Email:          r.PostFormValue("email"),
		Password:       r.PostFormValue("password"),
		RepeatPassword: r.PostFormValue("repeat_password"),
	}
	_, err := h.identity.Register(r.Context(), in)
	if err == nil {
		setFlash(w, "success", "Registration Successful! Log in!")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := &pageData{
		Title: "Register",
		Form:  map[string]string{"name": in.Name, "email": in.Email},
	}
	var verr *errs.ValidationError
	var dup *errs.DuplicateError
	switch {
	case errors.As(err, &verr):
		data.Errors = verr
		h.render(w, r, http.StatusUnprocessableEntity, "register", data)
	case errors.As(err, &dup):
		data.FormError = duplicateMessages[dup.Field]
		if data.FormError == "" {
			data.FormError = "This account already exists."
		}
		h.render(w, r, http.StatusConflict, "register", data)
	default:
		h.fail(w, r, err)
	}
}

func (h *Handlers) LoginFormHandler(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", &pageData{
		Title: "Login",
		Next:  r.URL.Query().Get("next"),
	})
}

func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	in := &models.LoginInput{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Remember: r.PostFormValue("remember") != "",
	}
	next := r.FormValue("next")

	user, err := h.identity.Authenticate(r.Context(), in)
	if err == nil {
		if err := h.sessions.SetCookie(w, user, in.Remember); err != nil {
			h.fail(w, r, err)
			return
		}
		http.Redirect(w, r, middleware.SafeNext(next), http.StatusSeeOther)
		return
	}

	data := &pageData{
		Title: "Login",
		Next:  next,
		Form:  map[string]string{"email": in.Email},
	}
	if in.Remember {
		data.Form["remember"] = "1"
	}
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		data.Errors = verr
		h.render(w, r, http.StatusUnprocessableEntity, "login", data)
	case errors.Is(err, errs.ErrAuth):
		data.FormError = "Failed to sign in. Check email and password"
		h.render(w, r, http.StatusUnauthorized, "login", data)
	default:
		h.fail(w, r, err)
	}
}

// LogoutHandler revokes every session of the user, not only this cookie.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if user, ok := auth.UserFromContext(r.Context()); ok {
		if err := h.store.RevokeSessions(r.Context(), user.ID); err != nil {
			h.logger.Error("failed to revoke sessions", "user_id", user.ID, "error", err)
		}
	}
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
