package validator

import (
	"fmt"

	"craftsmen_front/internal/models"
	"craftsmen_front/internal/models/chat"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует кастомные правила валидации.
func registerCustomRules(v *validator.Validate) error {
	rules := map[string]validator.Func{
		// 'is-user-role': client, craftsman, admin
		"is-user-role": validateUserRole,
		// 'is-message-type': text, image
		"is-message-type": validateMessageType,
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register custom validation tag '%s': %w", tag, err)
		}
	}
	return nil
}

// --- Функции валидации ---
// Пустые значения пропускаются, для этого есть 'required'.

func validateUserRole(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.UserRole(value).IsValid()
}

func validateMessageType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return chat.MessageType(value).IsValid()
}
