package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

type userDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	Password   string             `bson:"password"`
	SecretSalt string             `bson:"secretSalt"`
	Sessions   []sessionDocument  `bson:"sessions"`
	CreatedAt  time.Time          `bson:"createdAt"`
}

type sessionDocument struct {
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// UserRepository stores users with their sessions embedded.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

// Create inserts a new user and sets the generated ID and creation time.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	doc := newUserDocument(user)
	doc.CreatedAt = now()

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	user.CreatedAt = doc.CreatedAt
	return nil
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := parseUserID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByIDAndRefreshToken returns the user only when one of its sessions holds token.
func (r *UserRepository) FindByIDAndRefreshToken(ctx context.Context, id, token string) (*model.User, error) {
	oid, err := parseUserID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid, "sessions.token": token})
}

// AddSession appends a session with $push, so concurrent logins never drop each other's session.
func (r *UserRepository) AddSession(ctx context.Context, userID string, session model.Session) error {
	oid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"sessions": sessionDocument{Token: session.Token, ExpiresAt: session.ExpiresAt}}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// RemoveSession pulls the session holding token out of the user document.
func (r *UserRepository) RemoveSession(ctx context.Context, userID, token string) error {
	oid, err := parseUserID(userID)
	if err != nil {
		return err
	}

	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "sessions.token": token},
		bson.M{"$pull": bson.M{"sessions": bson.M{"token": token}}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

func newUserDocument(u *model.User) userDocument {
	// A null sessions field would make the first $push fail.
	sessions := make([]sessionDocument, 0, len(u.Sessions))
	for _, s := range u.Sessions {
		sessions = append(sessions, sessionDocument{Token: s.Token, ExpiresAt: s.ExpiresAt})
	}

	return userDocument{
		Email:      u.Email,
		Password:   u.PasswordHash,
		SecretSalt: u.SecretSalt,
		Sessions:   sessions,
		CreatedAt:  u.CreatedAt,
	}
}

func (d userDocument) toModel() *model.User {
	u := &model.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		SecretSalt:   d.SecretSalt,
		CreatedAt:    d.CreatedAt.UTC(),
	}
	for _, s := range d.Sessions {
		u.Sessions = append(u.Sessions, model.Session{Token: s.Token, ExpiresAt: s.ExpiresAt.UTC()})
	}
	return u
}
