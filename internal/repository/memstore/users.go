package memstore

import (
	"context"

	"campus-market/internal/domain"
	"campus-market/internal/errors"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) CreateUser(_ context.Context, user *domain.User) error {
	return r.s.locked(func(st *state) error {
		if err := checkContactUnique(st, "", user.Phone, user.CampusCard); err != nil {
			return err
		}
		for _, u := range st.users {
			if u.Username == user.Username {
				return errors.ErrDuplicateUsername
			}
		}
		st.users[user.ID] = *user
		r.s.logger.Info("User created successfully", "user_id", user.ID)
		return nil
	})
}

func (r *userRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	var found domain.User
	err := r.s.locked(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errors.ErrUserNotFound
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *userRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	var found domain.User
	err := r.s.locked(func(st *state) error {
		for _, u := range st.users {
			if u.Username == username {
				found = u
				return nil
			}
		}
		return errors.ErrUserNotFound
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *userRepository) UpdateUserContact(_ context.Context, id, phone, campusCard string) error {
	return r.s.locked(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errors.ErrUserNotFound
		}
		if err := checkContactUnique(st, id, phone, campusCard); err != nil {
			return err
		}
		u.Phone = phone
		u.CampusCard = campusCard
		st.users[id] = u
		return nil
	})
}

func checkContactUnique(st *state, exceptID, phone, campusCard string) error {
	for _, u := range st.users {
		if u.ID == exceptID {
			continue
		}
		if u.Phone == phone {
			return errors.ErrDuplicatePhone
		}
		if u.CampusCard == campusCard {
			return errors.ErrDuplicateCampusCard
		}
	}
	return nil
}

type categoryRepository struct {
	s *Store
}

func (r *categoryRepository) ListCategories(_ context.Context) ([]domain.Category, error) {
	var categories []domain.Category
	err := r.s.locked(func(st *state) error {
		categories = append([]domain.Category{}, st.categories...)
		return nil
	})
	return categories, err
}

func (r *categoryRepository) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	var found domain.Category
	err := r.s.locked(func(st *state) error {
		c, ok := findCategory(st, id)
		if !ok {
			return errors.ErrCategoryNotFound
		}
		found = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func findCategory(st *state, id int64) (domain.Category, bool) {
	for _, c := range st.categories {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Category{}, false
}
