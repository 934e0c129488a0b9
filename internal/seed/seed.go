// Package seed loads the demo facility used in development and in `serve --memory`.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"altenheim-avatar/internal/domain"
	"altenheim-avatar/internal/repository"
)

// DemoFacilitySlug is the slug residents of the demo facility log in with.
const DemoFacilitySlug = "sonnenschein"

type Repos struct {
	Tenants     repository.TenantsRepository
	Users       repository.UsersRepository
	Residents   repository.ResidentsRepository
	Biographies repository.BiographiesRepository
}

type demoUser struct {
	email, password, name, role string
}

type demoResident struct {
	resident domain.Resident
	pin      string
	bios     []domain.Biography
}

var demoUsers = []demoUser{
	{"admin@sonnenschein-heim.de", "admin123", "Maria Schmidt", domain.RoleAdmin},
	{"pfleger@sonnenschein-heim.de", "pfleger123", "Thomas Müller", domain.RoleCaregiver},
}

var demoResidents = []demoResident{
	{
		resident: domain.Resident{
			FirstName:      "Gertrud",
			DisplayName:    "Trudel",
			AddressForm:    domain.AddressFormDu,
			Language:       "de",
			CognitiveLevel: domain.CognitiveMild,
			AvatarName:     domain.DefaultAvatarName,
		},
		pin: "1234",
		bios: []domain.Biography{
			{Category: domain.BioFamily, Key: "Ehemann", Value: "Heinrich, verstorben 2015. 52 Jahre verheiratet."},
			{Category: domain.BioFamily, Key: "Kinder", Value: "Sohn Peter (63) lebt in Hamburg, Tochter Monika (60) lebt in München."},
			{Category: domain.BioHobbies, Key: "Stricken", Value: "Hat ihr ganzes Leben lang gestrickt. Liebt es, Socken für die Enkel zu stricken."},
			{Category: domain.BioHobbies, Key: "Volksmusik", Value: `Hört gerne Volksmusik, besonders "Kein schöner Land".`},
			{Category: domain.BioHometown, Key: "Geburtsort", Value: "Berchtesgaden, in den Bayerischen Alpen aufgewachsen."},
			{Category: domain.BioMemories, Key: "Schönstes Erlebnis", Value: "Die Hochzeit mit Heinrich im Juni 1963 in der kleinen Dorfkirche."},
			{Category: domain.BioPreferences, Key: "Lieblingsessen", Value: "Kaiserschmarrn und Apfelstrudel."},
		},
	},
	{
		resident: domain.Resident{
			FirstName:      "Walter",
			AddressForm:    domain.AddressFormSie,
			Language:       "de",
			CognitiveLevel: domain.CognitiveNormal,
			AvatarName:     domain.DefaultAvatarName,
		},
		pin: "5678",
		bios: []domain.Biography{
			{Category: domain.BioCareer, Key: "Beruf", Value: "War 40 Jahre lang Schreinermeister mit eigener Werkstatt."},
			{Category: domain.BioHobbies, Key: "Schach", Value: "Leidenschaftlicher Schachspieler, war im Schachverein."},
			{Category: domain.BioPreferences, Key: "Lieblingsessen", Value: "Schweinebraten mit Knödel und Blaukraut."},
		},
	},
	{
		resident: domain.Resident{
			FirstName:      "Helga",
			AddressForm:    domain.AddressFormDu,
			Language:       "de",
			CognitiveLevel: domain.CognitiveModerate,
			AvatarName:     domain.DefaultAvatarName,
		},
		pin: "9999",
		bios: []domain.Biography{
			{Category: domain.BioFamily, Key: "Tochter", Value: "Renate, kommt jeden Sonntag zu Besuch."},
			{Category: domain.BioHobbies, Key: "Singen", Value: "Hat im Kirchenchor gesungen. Kennt viele alte Volkslieder auswendig."},
		},
	},
}

// Demo creates the demo facility with two staff users and three residents.
// Users are refreshed on every run; residents are only created while the
// facility has none. cost is the bcrypt cost, 0 means bcrypt.DefaultCost.
func Demo(ctx context.Context, repos Repos, cost int, logger *zap.Logger) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	tenantID, err := repos.Tenants.UpsertTenant(ctx, &domain.Tenant{
		Name:         "Seniorenresidenz Sonnenschein",
		Slug:         DemoFacilitySlug,
		ContactEmail: "info@sonnenschein-heim.de",
		MaxResidents: 50,
	})
	if err != nil {
		return "", fmt.Errorf("seed facility: %w", err)
	}

	for _, u := range demoUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), cost)
		if err != nil {
			return "", fmt.Errorf("hash password: %w", err)
		}
		if _, err := repos.Users.UpsertUser(ctx, &domain.User{
			TenantID:     tenantID,
			Email:        u.email,
			PasswordHash: string(hash),
			Name:         u.name,
			Role:         u.role,
		}); err != nil {
			return "", fmt.Errorf("seed user %s: %w", u.email, err)
		}
	}

	existing, err := repos.Residents.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return "", fmt.Errorf("list residents: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("Demo residents already present, skipping", zap.Int("residents", len(existing)))
		return tenantID, nil
	}

	for _, d := range demoResidents {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.pin), cost)
		if err != nil {
			return "", fmt.Errorf("hash PIN: %w", err)
		}
		r := d.resident
		r.TenantID = tenantID
		r.PINHash = string(hash)
		id, err := repos.Residents.CreateResident(ctx, &r)
		if err != nil {
			return "", fmt.Errorf("seed resident %s: %w", r.FirstName, err)
		}
		for _, b := range d.bios {
			b.ResidentID = id
			b.Source = domain.BioSourceManual
			if _, err := repos.Biographies.Upsert(ctx, &b); err != nil {
				return "", fmt.Errorf("seed biography %s/%s: %w", r.FirstName, b.Key, err)
			}
		}
		logger.Info("Seeded resident", zap.String("first_name", r.FirstName), zap.String("resident_id", id))
	}
	return tenantID, nil
}
