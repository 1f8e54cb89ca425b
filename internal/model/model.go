package model

import "time"

// Contact is the data structure for a person that a user knows. Every contact belongs to
// exactly one owner, the user who created it. Address is the only optional field.
type Contact struct {
	Id        string    `json:"id"         db:"id"         gorm:"primaryKey;size:36"`
	Owner     string    `json:"owner"      db:"owner"      gorm:"size:36;not null;index:idx_contacts_owner_created"`
	Name      string    `json:"name"       db:"name"       gorm:"size:100;not null"`
	Email     string    `json:"email"      db:"email"      gorm:"size:255;not null"`
	Phone     string    `json:"phone"      db:"phone"      gorm:"size:20;not null"`
	Address   *string   `json:"address"    db:"address"    gorm:"size:500"`
	CreatedAt time.Time `json:"created_at" db:"created_at" gorm:"not null;index:idx_contacts_owner_created"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" gorm:"not null"`
}

// Fields holds the user editable values of a contact after validation.
type Fields struct {
	Name    string  `db:"name"`
	Email   string  `db:"email"`
	Phone   string  `db:"phone"`
	Address *string `db:"address"`
}

// User is an account that can sign in and own contacts.
type User struct {
	Id           string    `json:"id"         db:"id"            gorm:"primaryKey;size:36"`
	Email        string    `json:"email"      db:"email"         gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `json:"-"          db:"password_hash" gorm:"size:60;not null"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"    gorm:"not null"`
}
