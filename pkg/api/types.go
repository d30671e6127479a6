package api

import "time"

// Account is the per-user record written at registration and returned on
// login. It is keyed by the principal ID issued by the identity authority.
type Account struct {
	Username string `json:"username"`
	Email    string `json:"email"`

	// Posts lists owned post IDs. It is created empty; ownership of a post
	// is decided by Post.AuthorID, not by this list.
	Posts []string `json:"posts"`
}

// NewAccount returns an Account with an empty, non-nil post list.
func NewAccount(username, email string) *Account {
	return &Account{Username: username, Email: email, Posts: []string{}}
}

// Post is a blog post. AuthorID is the subject of the principal that
// created it and never changes afterwards.
type Post struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostUpdate carries the fields of a partial post update. Nil fields are
// left unchanged.
type PostUpdate struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u PostUpdate) Empty() bool {
	return u.Title == nil && u.Content == nil
}

// Apply copies the set fields of u onto p.
func (u PostUpdate) Apply(p *Post) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Content != nil {
		p.Content = *u.Content
	}
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreatePostRequest is the body of POST /blogs.
type CreatePostRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdatePostRequest is the body of PUT /blogs/{blogId}. Both fields are
// optional; at least one must be present.
type UpdatePostRequest = PostUpdate

// MessageResponse is the success envelope for operations that return no data.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse is the success envelope of POST /login.
type LoginResponse struct {
	Message string   `json:"message"`
	Data    *Account `json:"data"`

	// Token is the bearer credential for protected routes.
	Token     string `json:"token,omitempty"`
	ExpiresIn int64  `json:"expiresIn,omitempty"`
}

// CreatePostResponse is the success envelope of POST /blogs.
type CreatePostResponse struct {
	Message string `json:"message"`
	BlogID  string `json:"blogId"`
}

// Success messages.
const (
	MessageRegistered  = "User registered successfully"
	MessageLoggedIn    = "User logged in successfully"
	MessagePostCreated = "Blog created successfully"
	MessagePostUpdated = "Post updated successfully"
	MessagePostDeleted = "Post deleted successfully"
)
