package api

import (
	"errors"
	"net/http"

	"notes/internal/errs"
	"notes/internal/models"
)

func (h *Handlers) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
	h.renderCategories(w, r, http.StatusOK, &pageData{})
}

func (h *Handlers) CreateCategoryHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	in := &models.CategoryInput{Name: r.PostFormValue("name")}

	err := in.Validate()
	if err == nil {
		_, err = h.store.CreateCategory(r.Context(), user.ID, in.Name)
	}
	if err == nil {
		http.Redirect(w, r, "/category", http.StatusSeeOther)
		return
	}

	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		h.fail(w, r, err)
		return
	}
	h.renderCategories(w, r, http.StatusUnprocessableEntity, &pageData{
		Form:   map[string]string{"name": in.Name},
		Errors: verr,
	})
}

func (h *Handlers) EditCategoryFormHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	category, err := h.store.GetCategory(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "edit_category", &pageData{
		Title:    "Rename category",
		Category: category,
		Form:     map[string]string{"name": category.Name},
	})
}

func (h *Handlers) EditCategoryHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in := &models.CategoryInput{Name: r.PostFormValue("name")}
	err = in.Validate()
	if err == nil {
		_, err = h.store.RenameCategory(r.Context(), user.ID, id, in.Name)
	}
	if err == nil {
		http.Redirect(w, r, "/category", http.StatusSeeOther)
		return
	}

	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		h.fail(w, r, err)
		return
	}
	category, err := h.store.GetCategory(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusUnprocessableEntity, "edit_category", &pageData{
		Title:    "Rename category",
		Category: category,
		Form:     map[string]string{"name": in.Name},
		Errors:   verr,
	})
}

// DeleteCategoryHandler removes the category; its notes stay.
func (h *Handlers) DeleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteCategory(r.Context(), user.ID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/category", http.StatusSeeOther)
}

func (h *Handlers) renderCategories(w http.ResponseWriter, r *http.Request, status int, data *pageData) {
	categories, err := h.store.ListCategories(r.Context(), currentUser(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data.Title = "Categories"
	data.Categories = categories
	h.render(w, r, status, "categories", data)
}
