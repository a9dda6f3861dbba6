package constants

type contextKey string

const (
	CurrentUser contextKey = "current_user"
	RequestID   contextKey = "request_id"
)

const (
	ParamID    = "id"
	ParamToken = "token"
	ParamYear  = "year"
)

const (
	UserCollection = "users"
	TourCollection = "tours"
)

const (
	GlobalInvalidationKey = "global_invalidation"
	UserInvalidation      = "user_invalidation"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)
