package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"postboard/internal/app"
	"postboard/internal/model"
	"postboard/internal/transport/http/middleware"
	"postboard/internal/transport/http/response"
)

type PostHandler struct {
	postService *app.PostService
}

type PostRequest struct {
	Title string `json:"title" binding:"required,max=255"`
	Body  string `json:"body" binding:"required"`
}

func (r *PostRequest) trimSpace() {
	r.Title = strings.TrimSpace(r.Title)
	r.Body = strings.TrimSpace(r.Body)
}

type PostResponse struct {
	Message string      `json:"message"`
	Post    *model.Post `json:"post"`
}

var postFields = []string{"title", "body"}

func NewPostHandler(postService *app.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.postService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, posts)
}

func (h *PostHandler) Show(c *gin.Context) {
	post, err := h.postService.Get(c.Request.Context(), postID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, post)
}

func (h *PostHandler) Create(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)

	var req PostRequest
	if verr := bindJSON(c, &req); verr != nil {
		writeError(c, verr, postFields...)
		return
	}

	post, err := h.postService.Create(c.Request.Context(), caller, app.PostInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		writeError(c, err, postFields...)
		return
	}
	response.JSON(c, http.StatusCreated, PostResponse{Message: "Post created successfully", Post: post})
}

func (h *PostHandler) Update(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)
	id := postID(c)

	var req PostRequest
	if verr := bindJSON(c, &req); verr != nil {
		writeError(c, verr, postFields...)
		return
	}

	post, err := h.postService.Update(c.Request.Context(), caller, id, app.PostInput{
		Title: req.Title,
		Body:  req.Body,
	})
	if err != nil {
		writeError(c, err, postFields...)
		return
	}
	response.JSON(c, http.StatusOK, PostResponse{Message: "Post updated successfully", Post: post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	caller, _ := middleware.CallerFrom(c)
	if err := h.postService.Delete(c.Request.Context(), caller, postID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Post deleted successfully")
}

// postID returns 0 for anything that is not a positive integer; the service
// reports 0 as not found.
func postID(c *gin.Context) uint {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}
