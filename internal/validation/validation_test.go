package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dekdek-app/dekdek/internal/models"
)

func TestRegisterForm(t *testing.T) {
	valid := RegisterForm{
		UserName:    "สมศรี",
		Email:       "somsri@example.com",
		Password:    "password123",
		PhoneNumber: "0812345678",
		Role:        models.RoleParent,
	}
	assert.NoError(t, Struct(valid))

	invalid := valid
	invalid.UserName = "   "
	invalid.PhoneNumber = "12345"
	invalid.Role = "nanny"

	err := Struct(invalid)
	require.Error(t, err)

	var verrs Errors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "this field cannot be blank", verrs["user_name"])
	assert.Contains(t, verrs, "phoneNumber")
	assert.Contains(t, verrs, "role")
	assert.NotContains(t, verrs, "email")
}

func TestChildFormBirthday(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC) }
	defer func() { now = time.Now }()

	form := ChildForm{
		ParentID: 1,
		Name:     "เด็กชายกล้า",
		NickName: "กล้า",
		Birthday: "2022-03-01",
		Gender:   models.GenderMale,
	}
	assert.NoError(t, Struct(form))

	form.Birthday = "2024-07-01"
	err := Struct(form)
	require.Error(t, err)
	assert.Contains(t, err.(Errors), "birthday")

	form.Birthday = "01/03/2022"
	assert.Error(t, Struct(form))
}

func TestAssessmentPath(t *testing.T) {
	assert.NoError(t, Struct(AssessmentPath{ChildID: 1, Aspect: "GM", RaterID: 2, AgeMonths: 18}))
	assert.Error(t, Struct(AssessmentPath{ChildID: 1, Aspect: "XX", RaterID: 2}))
	assert.Error(t, Struct(AssessmentPath{ChildID: 0, Aspect: "GM"}))
}

func TestErrorsMessageIsSorted(t *testing.T) {
	e := Errors{"b": "two", "a": "one"}
	assert.Equal(t, "validation failed: a: one; b: two", e.Error())
}
