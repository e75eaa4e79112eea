// Package i18n maps failure keys to user-facing messages in English and
// Arabic.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Key identifies a user-facing failure message.
type Key string

const (
	ChatIDRequired         Key = "chat_id_required"
	ContentRequired        Key = "content_required"
	AccessDeniedChat       Key = "access_denied_chat"
	ChatNotFound           Key = "chat_not_found"
	ModelNotSupported      Key = "model_not_supported"
	AIServiceError         Key = "ai_service_error"
	APIKeyInvalid          Key = "api_key_invalid"
	NetworkError           Key = "network_error"
	RateLimitExceeded      Key = "rate_limit_exceeded"
	ModelFetchFailed       Key = "model_fetch_failed"
	AuthenticationRequired Key = "authentication_required"
	InvalidCredentials     Key = "invalid_credentials"
	UserAlreadyExists      Key = "user_already_exists"
	ValidationError        Key = "validation_error"
	ServerError            Key = "server_error"
)

const (
	English = "en"
	Arabic  = "ar"
)

// unknownMessage is returned for keys missing from every catalog.
const unknownMessage = "An error occurred."

var catalogs = map[string]map[Key]string{
	English: {
		ChatIDRequired:         "Chat ID is required.",
		ContentRequired:        "Message content is required.",
		AccessDeniedChat:       "You do not have permission to access this chat.",
		ChatNotFound:           "The requested chat does not exist.",
		ModelNotSupported:      "The selected AI model is not supported or available.",
		AIServiceError:         "AI service is temporarily unavailable. Please try again.",
		APIKeyInvalid:          "AI service configuration error. Please contact support.",
		NetworkError:           "Network error occurred. Please check your connection and try again.",
		RateLimitExceeded:      "Too many requests. Please wait a moment and try again.",
		ModelFetchFailed:       "Failed to fetch available models.",
		AuthenticationRequired: "Authentication is required for this action.",
		InvalidCredentials:     "Invalid email or password.",
		UserAlreadyExists:      "A user with this email already exists.",
		ValidationError:        "Please check your input and try again.",
		ServerError:            "An unexpected server error occurred. Please try again later.",
	},
	Arabic: {
		ChatIDRequired:         "معرف المحادثة مطلوب.",
		ContentRequired:        "محتوى الرسالة مطلوب.",
		AccessDeniedChat:       "ليس لديك صلاحية للوصول إلى هذه المحادثة.",
		ChatNotFound:           "المحادثة المطلوبة غير موجودة.",
		ModelNotSupported:      "نموذج الذكاء الاصطناعي المحدد غير مدعوم أو غير متاح.",
		AIServiceError:         "خدمة الذكاء الاصطناعي غير متاحة مؤقتاً. يرجى المحاولة مرة أخرى.",
		APIKeyInvalid:          "خطأ في إعداد خدمة الذكاء الاصطناعي. يرجى الاتصال بالدعم.",
		NetworkError:           "حدث خطأ في الشبكة. يرجى التحقق من الاتصال والمحاولة مرة أخرى.",
		RateLimitExceeded:      "طلبات كثيرة جداً. يرجى الانتظار قليلاً والمحاولة مرة أخرى.",
		ModelFetchFailed:       "فشل في جلب النماذج المتاحة.",
		AuthenticationRequired: "المصادقة مطلوبة لهذا الإجراء.",
		InvalidCredentials:     "البريد الإلكتروني أو كلمة المرور غير صحيحة.",
		UserAlreadyExists:      "يوجد مستخدم بهذا البريد الإلكتروني بالفعل.",
		ValidationError:        "يرجى التحقق من المدخلات والمحاولة مرة أخرى.",
		ServerError:            "حدث خطأ غير متوقع في الخادم. يرجى المحاولة لاحقاً.",
	},
}

// Message returns the message for key in lang. Unknown languages use
// English; keys missing from lang fall back to English, then to a generic
// message.
func Message(key Key, lang string) string {
	catalog := catalogs[Normalize(lang)]
	if msg, ok := catalog[key]; ok {
		return msg
	}
	if msg, ok := catalogs[English][key]; ok {
		return msg
	}
	return unknownMessage
}

// Normalize returns the lowercase code of lang when it is supported and
// English otherwise.
func Normalize(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if _, ok := catalogs[lang]; ok {
		return lang
	}
	return English
}

// ErrorResponse builds the failure body {error, error_code, language}
// merged with extra fields.
func ErrorResponse(key Key, lang string, extra map[string]any) map[string]any {
	lang = Normalize(lang)
	resp := make(map[string]any, len(extra)+3)
	for k, v := range extra {
		resp[k] = v
	}
	resp["error"] = Message(key, lang)
	resp["error_code"] = string(key)
	resp["language"] = lang
	return resp
}

var matcher = language.NewMatcher([]language.Tag{language.English, language.Arabic})

// ResolveLanguage picks the response language: an explicit value from the
// request body wins, then the Accept-Language header, then English.
func ResolveLanguage(explicit, acceptLanguage string) string {
	if strings.TrimSpace(explicit) != "" {
		return Normalize(explicit)
	}
	if acceptLanguage == "" {
		return English
	}

	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return English
	}
	if idx == 1 {
		return Arabic
	}
	return English
}
