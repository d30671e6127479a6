package api

import "strings"

// MessageMissingFields is the message used for every missing required field.
const MessageMissingFields = "Missing fields"

// ValidateRegister checks that username, email, and password are present.
// It returns an *APIError naming the first missing field, or nil.
func ValidateRegister(req *RegisterRequest) *APIError {
	if req == nil {
		return NewInvalidRequestError("", MessageMissingFields)
	}
	return requireFields(
		field{"username", req.Username},
		field{"email", req.Email},
		field{"password", req.Password},
	)
}

// ValidateLogin checks that email and password are present.
func ValidateLogin(req *LoginRequest) *APIError {
	if req == nil {
		return NewInvalidRequestError("", MessageMissingFields)
	}
	return requireFields(
		field{"email", req.Email},
		field{"password", req.Password},
	)
}

// ValidateCreatePost checks that title and content are present.
func ValidateCreatePost(req *CreatePostRequest) *APIError {
	if req == nil {
		return NewInvalidRequestError("", MessageMissingFields)
	}
	return requireFields(
		field{"title", req.Title},
		field{"content", req.Content},
	)
}

// ValidatePostUpdate checks that an update sets at least one field and that
// provided fields are not blank.
func ValidatePostUpdate(req *PostUpdate) *APIError {
	if req == nil || req.Empty() {
		return NewInvalidRequestError("", "title or content is required")
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return NewInvalidRequestError("title", "title must not be empty")
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return NewInvalidRequestError("content", "content must not be empty")
	}
	return nil
}

type field struct {
	name  string
	value string
}

func requireFields(fields ...field) *APIError {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return NewInvalidRequestError(f.name, MessageMissingFields)
		}
	}
	return nil
}
