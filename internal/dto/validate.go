package dto

import (
	"github.com/go-playground/validator/v10"

	"formflow/backend/internal/workflow"
)

// RegisterValidators 注册自定义 binding 校验规则，由 gin 的校验引擎调用
func RegisterValidators(v *validator.Validate) error {
	return v.RegisterValidation("field_type", validateFieldType)
}

// validateFieldType 字段类型必须属于固定枚举
func validateFieldType(fl validator.FieldLevel) bool {
	return workflow.FieldType(fl.Field().String()).Valid()
}
