package domain

import (
	"strings"
	"time"
)

// Role represents user role in the system
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleLibrarian Role = "Librarian"
)

// Member statuses
const (
	MemberStatusActive    = "Active"
	MemberStatusInactive  = "Inactive"
	MemberStatusSuspended = "Suspended"
)

// Borrowing statuses
const (
	BorrowingStatusBorrowed = "Borrowed"
	BorrowingStatusReturned = "Returned"
	BorrowingStatusOverdue  = "Overdue"
)

// DefaultLoanDays is the loan period applied when a book is borrowed
const DefaultLoanDays = 14

// Collection is implemented by every record set persisted as one XML file.
// The root element carries the collection name and holds one child element per record.
type Collection interface {
	RootElement() string
	RecordElement() string
	Len() int
}

// ============================================================
// Book
// ============================================================

// Book represents a catalogue entry
type Book struct {
	ID              int    `xml:"Id,attr" json:"id"`
	ISBN            string `xml:"ISBN" json:"isbn"`
	Title           string `xml:"Title" json:"title"`
	Author          string `xml:"Author" json:"author"`
	Publisher       string `xml:"Publisher" json:"publisher"`
	PublicationYear int    `xml:"PublicationYear" json:"publicationYear"`
	Genre           string `xml:"Genre" json:"genre"`
	AvailableCopies int    `xml:"AvailableCopies" json:"availableCopies"`
	TotalCopies     int    `xml:"TotalCopies" json:"totalCopies"`
}

// ClampCopies forces TotalCopies >= 1 and 0 <= AvailableCopies <= TotalCopies
func (b *Book) ClampCopies() {
	if b.TotalCopies < 1 {
		b.TotalCopies = 1
	}
	if b.AvailableCopies < 0 {
		b.AvailableCopies = 0
	}
	if b.AvailableCopies > b.TotalCopies {
		b.AvailableCopies = b.TotalCopies
	}
}

// Books is the books.xml document
type Books struct {
	Items []Book `xml:"Book"`
}

func (b *Books) RootElement() string   { return "Books" }
func (b *Books) RecordElement() string { return "Book" }
func (b *Books) Len() int              { return len(b.Items) }

// Clone returns a deep copy
func (b *Books) Clone() *Books {
	out := &Books{}
	if b.Items != nil {
		out.Items = make([]Book, len(b.Items))
		copy(out.Items, b.Items)
	}
	return out
}

// NextID returns max existing id + 1
func (b *Books) NextID() int {
	max := 0
	for _, it := range b.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// Index returns the position of the book with the given id, or -1
func (b *Books) Index(id int) int {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// ============================================================
// Member
// ============================================================

// Member represents a library patron
type Member struct {
	ID             int    `xml:"Id,attr" json:"id"`
	FirstName      string `xml:"FirstName" json:"firstName"`
	LastName       string `xml:"LastName" json:"lastName"`
	Email          string `xml:"Email" json:"email"`
	PhoneNumber    string `xml:"PhoneNumber" json:"phoneNumber"`
	Address        string `xml:"Address" json:"address"`
	MembershipDate Date   `xml:"MembershipDate" json:"membershipDate"`
	Status         string `xml:"Status" json:"status"`
}

// FullName returns "First Last"
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// Members is the members.xml document
type Members struct {
	Items []Member `xml:"Member"`
}

func (m *Members) RootElement() string   { return "Members" }
func (m *Members) RecordElement() string { return "Member" }
func (m *Members) Len() int              { return len(m.Items) }

// Clone returns a deep copy
func (m *Members) Clone() *Members {
	out := &Members{}
	if m.Items != nil {
		out.Items = make([]Member, len(m.Items))
		copy(out.Items, m.Items)
	}
	return out
}

// NextID returns max existing id + 1
func (m *Members) NextID() int {
	max := 0
	for _, it := range m.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// Index returns the position of the member with the given id, or -1
func (m *Members) Index(id int) int {
	for i := range m.Items {
		if m.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// ============================================================
// Borrowing
// ============================================================

// Borrowing records one loan of one book to one member
type Borrowing struct {
	ID         int    `xml:"Id,attr" json:"id"`
	BookID     int    `xml:"BookId" json:"bookId"`
	MemberID   int    `xml:"MemberId" json:"memberId"`
	BorrowDate Date   `xml:"BorrowDate" json:"borrowDate"`
	DueDate    Date   `xml:"DueDate" json:"dueDate"`
	ReturnDate *Date  `xml:"ReturnDate,omitempty" json:"returnDate,omitempty"`
	Status     string `xml:"Status" json:"status"`
}

// IsActive reports whether the book is still out
func (b *Borrowing) IsActive() bool {
	return b.Status == BorrowingStatusBorrowed || b.Status == BorrowingStatusOverdue
}

// IsPastDue reports whether the loan is still out after its due date
func (b *Borrowing) IsPastDue(today Date) bool {
	return b.IsActive() && b.DueDate.Before(today.Time)
}

// Borrowings is the borrowings.xml document
type Borrowings struct {
	Items []Borrowing `xml:"Borrowing"`
}

func (b *Borrowings) RootElement() string   { return "Borrowings" }
func (b *Borrowings) RecordElement() string { return "Borrowing" }
func (b *Borrowings) Len() int              { return len(b.Items) }

// Clone returns a deep copy
func (b *Borrowings) Clone() *Borrowings {
	out := &Borrowings{}
	if b.Items != nil {
		out.Items = make([]Borrowing, len(b.Items))
		for i, it := range b.Items {
			if it.ReturnDate != nil {
				d := *it.ReturnDate
				it.ReturnDate = &d
			}
			out.Items[i] = it
		}
	}
	return out
}

// NextID returns max existing id + 1
func (b *Borrowings) NextID() int {
	max := 0
	for _, it := range b.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// Index returns the position of the borrowing with the given id, or -1
func (b *Borrowings) Index(id int) int {
	for i := range b.Items {
		if b.Items[i].ID == id {
			return i
		}
	}
	return -1
}

// ============================================================
// User
// ============================================================

// User is an API account
type User struct {
	ID           int    `xml:"Id,attr" json:"id"`
	Username     string `xml:"Username" json:"username"`
	PasswordHash string `xml:"PasswordHash" json:"-"`
	Role         Role   `xml:"Role" json:"role"`
}

// Users is the users.xml document
type Users struct {
	Items []User `xml:"User"`
}

func (u *Users) RootElement() string   { return "Users" }
func (u *Users) RecordElement() string { return "User" }
func (u *Users) Len() int              { return len(u.Items) }

// Clone returns a deep copy
func (u *Users) Clone() *Users {
	out := &Users{}
	if u.Items != nil {
		out.Items = make([]User, len(u.Items))
		copy(out.Items, u.Items)
	}
	return out
}

// NextID returns max existing id + 1
func (u *Users) NextID() int {
	max := 0
	for _, it := range u.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max + 1
}

// FindByUsername matches case-insensitively
func (u *Users) FindByUsername(username string) *User {
	for i := range u.Items {
		if strings.EqualFold(u.Items[i].Username, username) {
			return &u.Items[i]
		}
	}
	return nil
}

// ============================================================
// Read models
// ============================================================

// BorrowingDetails is a borrowing joined with its book and member
type BorrowingDetails struct {
	Borrowing
	BookTitle  string `xml:"BookTitle" json:"bookTitle"`
	MemberName string `xml:"MemberName" json:"memberName"`
}

// CountEntry is a name with an occurrence count
type CountEntry struct {
	Name  string `xml:"Name" json:"name"`
	Count int    `xml:"Count" json:"count"`
}

// LibraryReport summarises the catalogue and circulation
type LibraryReport struct {
	GeneratedDate    Date         `xml:"GeneratedDate" json:"generatedDate"`
	TotalBooks       int          `xml:"TotalBooks" json:"totalBooks"`
	TotalMembers     int          `xml:"TotalMembers" json:"totalMembers"`
	ActiveBorrowings int          `xml:"ActiveBorrowings" json:"activeBorrowings"`
	AvailableBooks   int          `xml:"AvailableBooks" json:"availableBooks"`
	OverdueBooks     int          `xml:"OverdueBooks" json:"overdueBooks"`
	PopularGenres    []CountEntry `xml:"PopularGenres>Genre" json:"popularGenres"`
	PopularAuthors   []CountEntry `xml:"PopularAuthors>Author" json:"popularAuthors"`
}

// Date is a calendar day, serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

// DateLayout is the wire format of Date
const DateLayout = "2006-01-02"

// NewDate truncates t to its calendar day in UTC
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day
func Today() Date {
	return NewDate(time.Now())
}

// ParseDate parses YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return NewDate(t), nil
}

// AddDays returns the day n days later
func (d Date) AddDays(n int) Date {
	return NewDate(d.Time.AddDate(0, 0, n))
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(s))
}
