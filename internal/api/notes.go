package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"notes/internal/errs"
	"notes/internal/models"
)

const msgForeignCategory = "Choose from your own categories."

// NotesHandler lists the user's notes next to the new note form.
func (h *Handlers) NotesHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	notes, err := h.store.ListNotes(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderNotes(w, r, http.StatusOK, &pageData{Notes: notes})
}

func (h *Handlers) CreateNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)

	in, photoFile, photoName, err := h.parseNoteForm(w, r)
	if photoFile != nil {
		defer photoFile.Close()
	}
	if err == nil {
		err = in.Validate()
	}

	var photoPath string
	if err == nil && photoFile != nil {
		photoPath, err = h.photos.Save(photoFile, photoName)
	}
	if err == nil {
		_, err = h.store.CreateNote(r.Context(), user.ID, in.Title, in.Text, photoPath, in.CategoryIDs)
		if err != nil && photoPath != "" {
			h.removePhoto(photoPath)
		}
	}
	if err == nil {
		http.Redirect(w, r, "/note", http.StatusSeeOther)
		return
	}

	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		h.fail(w, r, err)
		return
	}
	notes, err := h.store.ListNotes(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderNotes(w, r, http.StatusUnprocessableEntity, &pageData{
		Notes:    notes,
		Form:     map[string]string{"title": in.Title, "text": in.Text},
		Errors:   verr,
		Selected: selected(in.CategoryIDs),
	})
}

func (h *Handlers) EditNoteFormHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	note, err := h.store.GetNote(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ids := make([]int, len(note.Categories))
	for i, c := range note.Categories {
		ids[i] = c.ID
	}
	h.renderEditNote(w, r, http.StatusOK, &pageData{
		Note:     note,
		Form:     map[string]string{"title": note.Title, "text": note.Text},
		Selected: selected(ids),
	})
}

func (h *Handlers) EditNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	in, photoFile, _, err := h.parseNoteForm(w, r)
	if photoFile != nil {
		// photos are fixed once the note exists
		photoFile.Close()
	}
	if err == nil {
		err = in.Validate()
	}
	if err == nil {
		_, err = h.store.EditNote(r.Context(), user.ID, id, in.Title, in.Text, in.CategoryIDs)
	}
	if err == nil {
		http.Redirect(w, r, "/note", http.StatusSeeOther)
		return
	}

	var verr *errs.ValidationError
	if !errors.As(err, &verr) {
		h.fail(w, r, err)
		return
	}
	note, err := h.store.GetNote(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderEditNote(w, r, http.StatusUnprocessableEntity, &pageData{
		Note:     note,
		Form:     map[string]string{"title": in.Title, "text": in.Text},
		Errors:   verr,
		Selected: selected(in.CategoryIDs),
	})
}

func (h *Handlers) DeleteNoteHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	note, err := h.store.GetNote(r.Context(), user.ID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.DeleteNote(r.Context(), user.ID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.removePhoto(note.Photo)
	http.Redirect(w, r, "/note", http.StatusSeeOther)
}

// SearchHandler lists notes whose title contains the submitted text.
func (h *Handlers) SearchHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := models.Clean(r.PostFormValue("search"))
	notes, err := h.store.SearchNotesByTitle(r.Context(), user.ID, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.renderNotes(w, r, http.StatusOK, &pageData{Notes: notes, Search: q})
}

// FilterHandler lists the notes of ?category=, or all notes when it is
// missing or not one of the user's categories.
func (h *Handlers) FilterHandler(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	var categoryID *int
	if id, err := strconv.Atoi(r.URL.Query().Get("category")); err == nil {
		categoryID = &id
	}
	notes, err := h.store.FilterNotesByCategory(r.Context(), user.ID, categoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := &pageData{Notes: notes}
	if categoryID != nil {
		data.FilterID = *categoryID
	}
	h.renderNotes(w, r, http.StatusOK, data)
}

func (h *Handlers) renderNotes(w http.ResponseWriter, r *http.Request, status int, data *pageData) {
	categories, err := h.store.ListCategories(r.Context(), currentUser(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data.Title = "My notes"
	data.Categories = categories
	h.render(w, r, status, "notes", data)
}

func (h *Handlers) renderEditNote(w http.ResponseWriter, r *http.Request, status int, data *pageData) {
	categories, err := h.store.ListCategories(r.Context(), currentUser(r).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data.Title = "Edit note"
	data.Categories = categories
	h.render(w, r, status, "edit_note", data)
}

// parseNoteForm reads a note form, multipart or urlencoded. The photo
// file is nil when none was uploaded.
func (h *Handlers) parseNoteForm(w http.ResponseWriter, r *http.Request) (*models.NoteInput, multipart.File, string, error) {
	in := &models.NoteInput{}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	err := r.ParseMultipartForm(h.maxUpload)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return in, nil, "", errs.Invalid("photo", "The file is too large.")
		}
		return in, nil, "", errs.Invalid("text", "The form could not be read.")
	}

	in.Title = r.PostFormValue("title")
	in.Text = r.PostFormValue("text")
	for _, v := range r.PostForm["categories"] {
		id, err := strconv.Atoi(v)
		if err != nil {
			return in, nil, "", errs.Invalid("categories", msgForeignCategory)
		}
		in.CategoryIDs = append(in.CategoryIDs, id)
	}

	if r.MultipartForm == nil {
		return in, nil, "", nil
	}
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, "", nil
	}
	if err != nil {
		return in, nil, "", errs.Invalid("photo", "The file could not be read.")
	}
	if header.Size == 0 {
		file.Close()
		return in, nil, "", nil
	}
	return in, file, header.Filename, nil
}

func (h *Handlers) removePhoto(path string) {
	if err := h.photos.Remove(path); err != nil {
		h.logger.Warn("photo not removed", "photo", path, "error", err)
	}
}

func selected(ids []int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
