package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ID is a backend identifier. The backend may send numbers or strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as JSON numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Entity is implemented by every record the admin dashboard manages.
type Entity interface {
	EntityID() ID
}

// User is the profile returned by the auth endpoints.
type User struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Service is a treatment or rehabilitation service offered by the center.
type Service struct {
	ID          ID        `json:"id,omitempty" form:"-"`
	Title       string    `json:"title" form:"title" validate:"required,max=200"`
	Slug        string    `json:"slug" form:"slug" validate:"max=200"`
	Summary     string    `json:"summary" form:"summary" validate:"max=500"`
	Description string    `json:"description" form:"description"`
	Icon        string    `json:"icon,omitempty" form:"icon"`
	Image       string    `json:"image,omitempty" form:"image"`
	OrderIndex  int       `json:"orderIndex" form:"orderIndex"`
	IsActive    bool      `json:"isActive" form:"isActive"`
	CreatedAt   time.Time `json:"createdAt,omitzero" form:"-"`
}

func (s Service) EntityID() ID { return s.ID }

// Product is a prosthetic, orthotic or mobility product.
type Product struct {
	ID          ID               `json:"id,omitempty" form:"-"`
	Name        string           `json:"name" form:"name" validate:"required,max=200"`
	Slug        string           `json:"slug" form:"slug" validate:"max=200"`
	Category    string           `json:"category" form:"category" validate:"max=100"`
	Summary     string           `json:"summary" form:"summary" validate:"max=500"`
	Description string           `json:"description" form:"description"`
	Price       decimal.Decimal  `json:"price" form:"price"`
	Image       string           `json:"image,omitempty" form:"image"`
	IsActive    bool             `json:"isActive" form:"isActive"`
	IsFeatured  bool             `json:"isFeatured" form:"isFeatured"`
	Images      []ProductImage   `json:"images,omitempty" form:"-"`
	Features    []ProductFeature `json:"features,omitempty" form:"-"`
	CreatedAt   time.Time        `json:"createdAt,omitzero" form:"-"`
}

func (p Product) EntityID() ID { return p.ID }

// ProductImage is an image owned by a product.
type ProductImage struct {
	ID         ID     `json:"id,omitempty"`
	ProductID  ID     `json:"productId"`
	URL        string `json:"url"`
	Alt        string `json:"alt,omitempty"`
	OrderIndex int    `json:"orderIndex"`
}

// ProductFeature is a bullet feature owned by a product.
type ProductFeature struct {
	ID          ID     `json:"id,omitempty"`
	ProductID   ID     `json:"productId" form:"-"`
	Title       string `json:"title" form:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" form:"description"`
}

// BlogPost is an article on the public blog.
type BlogPost struct {
	ID          ID            `json:"id,omitempty" form:"-"`
	Title       string        `json:"title" form:"title" validate:"required,max=250"`
	Slug        string        `json:"slug" form:"slug" validate:"max=250"`
	Excerpt     string        `json:"excerpt" form:"excerpt" validate:"max=600"`
	Content     string        `json:"content" form:"content" validate:"required"`
	CoverImage  string        `json:"coverImage,omitempty" form:"coverImage"`
	Status      Status        `json:"status" form:"status" validate:"required,oneof=DRAFT PUBLISHED"`
	CategoryID  ID            `json:"categoryId,omitempty" form:"categoryId"`
	Category    *BlogCategory `json:"category,omitempty" form:"-"`
	TagIDs      []ID          `json:"tagIds,omitempty" form:"tagIds"`
	Tags        []BlogTag     `json:"tags,omitempty" form:"-"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty" form:"-"`
	CreatedAt   time.Time     `json:"createdAt,omitzero" form:"-"`
}

func (p BlogPost) EntityID() ID { return p.ID }

// BlogCategory groups blog posts; deletion is refused by the backend while referenced.
type BlogCategory struct {
	ID          ID     `json:"id,omitempty" form:"-"`
	Name        string `json:"name" form:"name" validate:"required,max=100"`
	Slug        string `json:"slug" form:"slug" validate:"max=100"`
	Description string `json:"description,omitempty" form:"description"`
}

func (c BlogCategory) EntityID() ID { return c.ID }

// BlogTag labels blog posts.
type BlogTag struct {
	ID   ID     `json:"id,omitempty" form:"-"`
	Name string `json:"name" form:"name" validate:"required,max=60"`
	Slug string `json:"slug" form:"slug" validate:"max=60"`
}

func (t BlogTag) EntityID() ID { return t.ID }

// Partner is an organization shown in the partners strip.
type Partner struct {
	ID          ID     `json:"id,omitempty" form:"-"`
	Name        string `json:"name" form:"name" validate:"required,max=200"`
	Slug        string `json:"slug" form:"slug" validate:"max=200"`
	Logo        string `json:"logo,omitempty" form:"logo"`
	Website     string `json:"website,omitempty" form:"website" validate:"omitempty,url"`
	Description string `json:"description,omitempty" form:"description"`
	OrderIndex  int    `json:"orderIndex" form:"orderIndex"`
	IsActive    bool   `json:"isActive" form:"isActive"`
}

func (p Partner) EntityID() ID { return p.ID }

// SuccessStory is a patient story published on the site.
type SuccessStory struct {
	ID          ID        `json:"id,omitempty" form:"-"`
	Title       string    `json:"title" form:"title" validate:"required,max=250"`
	Slug        string    `json:"slug" form:"slug" validate:"max=250"`
	PatientName string    `json:"patientName" form:"patientName" validate:"max=120"`
	Story       string    `json:"story" form:"story" validate:"required"`
	Image       string    `json:"image,omitempty" form:"image"`
	VideoURL    string    `json:"videoUrl,omitempty" form:"videoUrl" validate:"omitempty,url"`
	OrderIndex  int       `json:"orderIndex" form:"orderIndex"`
	IsPublished bool      `json:"isPublished" form:"isPublished"`
	CreatedAt   time.Time `json:"createdAt,omitzero" form:"-"`
}

func (s SuccessStory) EntityID() ID { return s.ID }

// SponsorshipCase is a patient case open for donations.
type SponsorshipCase struct {
	ID           ID              `json:"id,omitempty" form:"-"`
	Title        string          `json:"title" form:"title" validate:"required,max=250"`
	Slug         string          `json:"slug" form:"slug" validate:"max=250"`
	Description  string          `json:"description" form:"description" validate:"required"`
	Image        string          `json:"image,omitempty" form:"image"`
	TargetAmount decimal.Decimal `json:"targetAmount" form:"targetAmount"`
	RaisedAmount decimal.Decimal `json:"raisedAmount" form:"raisedAmount"`
	Status       Status          `json:"status" form:"status" validate:"required,oneof=ACTIVE COMPLETED CLOSED"`
	IsUrgent     bool            `json:"isUrgent" form:"isUrgent"`
	CreatedAt    time.Time       `json:"createdAt,omitzero" form:"-"`
}

func (s SponsorshipCase) EntityID() ID { return s.ID }

// Progress returns the raised share of the target as a whole percentage in [0, 100].
func (s SponsorshipCase) Progress() int {
	if !s.TargetAmount.IsPositive() {
		return 0
	}
	pct := s.RaisedAmount.Mul(decimal.NewFromInt(100)).Div(s.TargetAmount).IntPart()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return int(pct)
}

// ContactMessage is a message sent through the public contact form.
type ContactMessage struct {
	ID        ID        `json:"id,omitempty" form:"-"`
	FullName  string    `json:"fullName" form:"fullName" validate:"required,max=120"`
	Email     string    `json:"email" form:"email" validate:"required,email"`
	Phone     string    `json:"phone" form:"phone" validate:"required,max=30"`
	Subject   string    `json:"subject" form:"subject" validate:"max=200"`
	Message   string    `json:"message" form:"message" validate:"required,max=5000"`
	Status    Status    `json:"status" form:"status"`
	Reply     string    `json:"reply,omitempty" form:"reply"`
	RepliedBy *User     `json:"repliedBy,omitempty" form:"-"`
	CreatedAt time.Time `json:"createdAt,omitzero" form:"-"`
}

func (m ContactMessage) EntityID() ID { return m.ID }

// JobApplication is an application submitted through the careers form.
type JobApplication struct {
	ID          ID        `json:"id,omitempty" form:"-"`
	FullName    string    `json:"fullName" form:"fullName" validate:"required,max=120"`
	Email       string    `json:"email" form:"email" validate:"required,email"`
	Phone       string    `json:"phone" form:"phone" validate:"required,max=30"`
	Position    string    `json:"position" form:"position" validate:"required,max=120"`
	CoverLetter string    `json:"coverLetter,omitempty" form:"coverLetter" validate:"max=5000"`
	CVURL       string    `json:"cvUrl,omitempty" form:"-"`
	Status      Status    `json:"status" form:"status"`
	Notes       string    `json:"notes,omitempty" form:"notes"`
	ReviewedBy  *User     `json:"reviewedBy,omitempty" form:"-"`
	CreatedAt   time.Time `json:"createdAt,omitzero" form:"-"`
}

func (j JobApplication) EntityID() ID { return j.ID }

// Partnership is an inquiry from an organization wishing to partner.
type Partnership struct {
	ID               ID        `json:"id,omitempty" form:"-"`
	OrganizationName string    `json:"organizationName" form:"organizationName" validate:"required,max=200"`
	ContactName      string    `json:"contactName" form:"contactName" validate:"required,max=120"`
	Email            string    `json:"email" form:"email" validate:"required,email"`
	Phone            string    `json:"phone" form:"phone" validate:"max=30"`
	Type             string    `json:"type" form:"type" validate:"max=60"`
	Message          string    `json:"message" form:"message" validate:"required,max=5000"`
	Status           Status    `json:"status" form:"status"`
	Notes            string    `json:"notes,omitempty" form:"notes"`
	CreatedAt        time.Time `json:"createdAt,omitzero" form:"-"`
}

func (p Partnership) EntityID() ID { return p.ID }

// Appointment is a visit request.
type Appointment struct {
	ID            ID        `json:"id,omitempty" form:"-"`
	FullName      string    `json:"fullName" form:"fullName" validate:"required,max=120"`
	Phone         string    `json:"phone" form:"phone" validate:"required,max=30"`
	Email         string    `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Service       string    `json:"service" form:"service" validate:"max=200"`
	PreferredDate string    `json:"preferredDate" form:"preferredDate" validate:"required,datetime=2006-01-02"`
	Notes         string    `json:"notes,omitempty" form:"notes" validate:"max=2000"`
	Status        Status    `json:"status" form:"status"`
	CreatedAt     time.Time `json:"createdAt,omitzero" form:"-"`
}

func (a Appointment) EntityID() ID { return a.ID }
