package data

import (
	"context"
	"time"

	"github.com/PaulBabatuyi/customer-chat/internal/apperr"
	"github.com/PaulBabatuyi/customer-chat/internal/normalize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// UsersStore performs user database operations.
type UsersStore struct {
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll}
}

// CreateUser inserts a new account. The password must already be hashed.
func (u *UsersStore) CreateUser(ctx context.Context, name, email, hashedPassword string, role Role) (*User, error) {
	now := time.Now()
	user := &User{
		Name:      name,
		Email:     normalize.Email(email),
		Password:  hashedPassword,
		Role:      role,
		LastSeen:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	result, err := u.coll.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.AlreadyExists("user already exists")
		}
		return nil, apperr.Storage(err)
	}

	user.ID = result.InsertedID.(bson.ObjectID)
	return user, nil
}

// GetUserByEmail finds a user by normalized email.
func (u *UsersStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage(err)
	}
	return &user, nil
}

// GetUserByID finds a user by ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id bson.ObjectID) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Storage(err)
	}
	return &user, nil
}

// FindAdmin returns the admin account. The single-admin precondition is
// deliberately explicit here: callers get a NotFound error rather than a
// guess when no admin has been seeded.
func (u *UsersStore) FindAdmin(ctx context.Context) (*User, error) {
	var user User
	err := u.coll.FindOne(ctx, bson.M{"role": RoleAdmin}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFound("admin not found")
		}
		return nil, apperr.Storage(err)
	}
	return &user, nil
}

// ListUsers returns all accounts except the given one, newest first.
func (u *UsersStore) ListUsers(ctx context.Context, except bson.ObjectID) ([]*User, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$ne": except}}, opts)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer cursor.Close(ctx)

	var users []*User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, apperr.Storage(err)
	}
	return users, nil
}

// SetOnline flips the online flag and refreshes last_seen.
func (u *UsersStore) SetOnline(ctx context.Context, id bson.ObjectID, online bool) error {
	update := bson.M{"$set": bson.M{
		"is_online": online,
		"last_seen": time.Now(),
	}}
	if _, err := u.coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// UserExists checks existence by id without decoding the document.
func (u *UsersStore) UserExists(ctx context.Context, id bson.ObjectID) (bool, error) {
	count, err := u.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return false, apperr.Storage(err)
	}
	return count > 0, nil
}
