package service

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"alcyxob/fitness-coach/internal/domain"
)

// validate checks the same binding tags gin checks on request bodies.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the custom tags and json field naming used by the
// service inputs. The API registers them on gin's validator engine too.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonFieldName)
	_ = v.RegisterValidation("positive", positiveNumber)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// positiveNumber accepts text holding a number greater than zero.
func positiveNumber(fl validator.FieldLevel) bool {
	if fl.Field().Kind() != reflect.String {
		return false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	return err == nil && v > 0
}

// check validates in and returns the first failure as a *ValidationError.
func check(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return TranslateValidation(errs)
	}
	return err
}

// TranslateValidation turns validator failures into the user-facing form message.
// A missing field wins over any other failure.
func TranslateValidation(errs validator.ValidationErrors) error {
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	for _, fe := range errs {
		if fe.Tag() == "required" && !inExercise(fe) {
			first = fe
			break
		}
	}
	return fieldError(first)
}

func inExercise(fe validator.FieldError) bool {
	return strings.Contains(fe.Namespace(), "exercises[")
}

func fieldError(fe validator.FieldError) *ValidationError {
	field := fe.Field()
	switch {
	case inExercise(fe) && field == "name":
		return &ValidationError{Field: "exercises", Message: "Every exercise needs a name."}
	case inExercise(fe):
		return &ValidationError{Field: "exercises", Message: "Sets and reps must be positive numbers."}
	case field == "exercises":
		return &ValidationError{Field: "exercises", Message: "Add at least one exercise."}
	case field == "updates":
		return &ValidationError{Field: "updates", Message: "Nothing to update."}
	}
	switch fe.Tag() {
	case "required":
		return &ValidationError{Message: "Please fill in all fields."}
	case "email":
		return &ValidationError{Field: field, Message: "Enter a valid email address."}
	case "min":
		if strings.Contains(strings.ToLower(field), "password") {
			return &ValidationError{Field: field, Message: "Password must be at least " + fe.Param() + " characters."}
		}
	case "eqfield":
		return &ValidationError{Field: field, Message: "Passwords do not match."}
	case "number", "numeric", "positive":
		return &ValidationError{Field: field, Message: label(field) + " must be a positive number."}
	case "datetime":
		return &ValidationError{Field: field, Message: "Date must be in YYYY-MM-DD format."}
	case "len":
		return &ValidationError{Field: field, Message: label(field) + " needs exactly " + fe.Param() + " values."}
	case "startswith":
		return &ValidationError{Field: field, Message: "Only video files can be attached to an exercise."}
	}
	return &ValidationError{Field: field, Message: label(field) + " is invalid."}
}

func label(field string) string {
	if field == "" {
		return "Value"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// RegisterStudentInput is the sign-up form. Numeric fields arrive as typed text.
type RegisterStudentInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Age      string `json:"age" binding:"required,number,positive"`
	Gender   string `json:"gender" binding:"required"`
	Weight   string `json:"weight" binding:"required,numeric,positive"`
	Height   string `json:"height" binding:"required,numeric,positive"`
}

// TrainerInput is the adminmaster's new-trainer form.
type TrainerInput struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	Age          string `json:"age" binding:"required,number,positive"`
	Phone        string `json:"phone" binding:"required"`
	Specialty    string `json:"specialty" binding:"required"`
	Availability string `json:"availability" binding:"required"`
}

// AdminInput is the operator's new-adminmaster form.
type AdminInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// PasswordChangeInput is the first-login password form.
type PasswordChangeInput struct {
	NewPassword  string `json:"newPassword" binding:"required,min=6"`
	Confirmation string `json:"confirmation" binding:"required,eqfield=NewPassword"`
}

type routineExercises struct {
	Exercises []domain.ExerciseEntry `json:"exercises" binding:"min=1,dive"`
}

type completionUpdates struct {
	Updates []CompletionUpdate `json:"updates" binding:"min=1,dive"`
}

type videoUpload struct {
	FileName    string `json:"fileName" binding:"required"`
	ContentType string `json:"contentType" binding:"required,startswith=video/"`
}

type injuryComment struct {
	Comment string `json:"comment" binding:"required"`
}

type injuryName struct {
	Name string `json:"name" binding:"required"`
}

type studentProfile struct {
	age      int
	weightKg float64
	heightCm float64
}

func (in *RegisterStudentInput) trim() {
	for _, f := range []*string{&in.Name, &in.Email, &in.Age, &in.Gender, &in.Weight, &in.Height} {
		*f = strings.TrimSpace(*f)
	}
}

func (in RegisterStudentInput) validate() (studentProfile, error) {
	var p studentProfile
	in.trim()
	if err := check(in); err != nil {
		return p, err
	}
	var err error
	if p.age, err = strconv.Atoi(in.Age); err != nil {
		return p, &ValidationError{Field: "age", Message: "Age must be a positive number."}
	}
	if p.weightKg, err = strconv.ParseFloat(in.Weight, 64); err != nil {
		return p, &ValidationError{Field: "weight", Message: "Weight must be a positive number."}
	}
	if p.heightCm, err = strconv.ParseFloat(in.Height, 64); err != nil {
		return p, &ValidationError{Field: "height", Message: "Height must be a positive number."}
	}
	return p, nil
}

func (in *TrainerInput) trim() {
	for _, f := range []*string{&in.Name, &in.Email, &in.Age, &in.Phone, &in.Specialty, &in.Availability} {
		*f = strings.TrimSpace(*f)
	}
}

func (in TrainerInput) validate() (int, error) {
	in.trim()
	if err := check(in); err != nil {
		return 0, err
	}
	age, err := strconv.Atoi(in.Age)
	if err != nil {
		return 0, &ValidationError{Field: "age", Message: "Age must be a positive number."}
	}
	return age, nil
}

func (in AdminInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return check(in)
}

func trimExerciseNames(exercises []domain.ExerciseEntry) {
	for i := range exercises {
		exercises[i].Name = strings.TrimSpace(exercises[i].Name)
	}
}

func validateExercises(exercises []domain.ExerciseEntry) error {
	trimExerciseNames(exercises)
	return check(routineExercises{Exercises: exercises})
}
