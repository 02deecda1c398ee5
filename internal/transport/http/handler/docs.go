package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// EndpointDoc describes a route for clients that GET it instead of POSTing.
type EndpointDoc struct {
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method"`
	Description     string            `json:"description"`
	Authentication  string            `json:"authentication,omitempty"`
	ExampleHeader   string            `json:"example_header,omitempty"`
	RequiredFields  map[string]string `json:"required_fields,omitempty"`
	ExampleRequest  map[string]string `json:"example_request,omitempty"`
	SuccessResponse map[string]string `json:"success_response"`
}

const bearerRequired = "Required - Bearer token in Authorization header"

func RegisterDoc(prefix string) EndpointDoc {
	return EndpointDoc{
		Endpoint:    prefix + "/register",
		Method:      http.MethodPost,
		Description: "Register a new user account",
		RequiredFields: map[string]string{
			"name":     "string (3-25 characters)",
			"email":    "valid email address (must be unique)",
			"password": "string (minimum 6 characters)",
		},
		ExampleRequest: map[string]string{
			"name":     "John Doe",
			"email":    "john@example.com",
			"password": "password123",
		},
		SuccessResponse: map[string]string{"message": "User registered successfully"},
	}
}

func LoginDoc(prefix string) EndpointDoc {
	return EndpointDoc{
		Endpoint:    prefix + "/login",
		Method:      http.MethodPost,
		Description: "Login with email and password to get access token",
		RequiredFields: map[string]string{
			"email":    "valid email address",
			"password": "string (minimum 6 characters)",
		},
		ExampleRequest: map[string]string{
			"email":    "john@example.com",
			"password": "password123",
		},
		SuccessResponse: map[string]string{
			"message": "Login successful",
			"token":   "Bearer token for authenticated requests",
		},
	}
}

func LogoutDoc(prefix string) EndpointDoc {
	return EndpointDoc{
		Endpoint:        prefix + "/logout",
		Method:          http.MethodPost,
		Description:     "Logout current user and invalidate access token",
		Authentication:  bearerRequired,
		ExampleHeader:   "Authorization: Bearer your_token_here",
		SuccessResponse: map[string]string{"message": "Logged out successfully"},
	}
}

func ServeDoc(doc EndpointDoc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	}
}
