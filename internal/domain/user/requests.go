package user

var Languages = []string{"en", "ur", "tl", "sw", "am"}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     Role   `json:"role" binding:"required,role"`
	Language string `json:"language" binding:"omitempty,oneof=en ur tl sw am"`
	Phone    string `json:"phone" binding:"omitempty,max=40"`
}

// with pointers if optional, it will be nil
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone" binding:"omitempty,max=40"`
	Language *string `json:"language" binding:"omitempty,oneof=en ur tl sw am"`
}

type UpdateLanguageRequest struct {
	Language string `json:"language" binding:"required,oneof=en ur tl sw am"`
}
