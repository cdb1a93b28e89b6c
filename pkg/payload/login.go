package payload

import (
	"fmt"
	"math/rand"
	"time"

	"food-order-loadtest/pkg/models"
)

// DefaultOTP is the fixed code the backend accepts while running in load-test mode.
const DefaultOTP = "123456"

func BuildLoginRequest(name, mobile string, now time.Time) models.LoginRequest {
	if mobile == "" {
		mobile = fmt.Sprintf("9%09d", now.UnixMilli()%1_000_000_000)
	}
	if name == "" {
		name = fmt.Sprintf("Load Test User %d", now.Unix())
	}
	return models.LoginRequest{Name: name, Mobile: mobile}
}

func BuildOtpVerifyRequest(mobile, restaurantId, otp string) models.OtpVerifyRequest {
	if otp == "" {
		otp = DefaultOTP
	}
	return models.OtpVerifyRequest{
		Mobile:       mobile,
		RestaurantId: restaurantId,
		Otp:          otp,
	}
}

func BuildAddressRequest(customerId string) models.AddressRequest {
	return models.AddressRequest{
		CustomerId: customerId,
		Label:      "HOME",
		Line1:      "42 Load Test Lane",
		City:       "Bengaluru",
		Pincode:    "560001",
		Latitude:   12.9716,
		Longitude:  77.5946,
	}
}

var firstNames = []string{"Aarav", "Diya", "Ishaan", "Meera", "Kabir", "Anaya", "Rohan", "Saanvi", "Vihaan", "Tara"}
var lastNames = []string{"Sharma", "Iyer", "Reddy", "Nair", "Kapoor", "Das", "Menon", "Joshi"}

// GenerateActors builds the run's actor pool. Mobile numbers are unique within
// the pool so concurrent logins never collide.
func GenerateActors(n int, r *rand.Rand) []models.Actor {
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	base := 7_000_000_000 + r.Int63n(1_000_000_000)
	actors := make([]models.Actor, 0, n)
	for i := 0; i < n; i++ {
		actors = append(actors, models.Actor{
			Index:  i,
			Name:   firstNames[r.Intn(len(firstNames))] + " " + lastNames[r.Intn(len(lastNames))],
			Mobile: fmt.Sprintf("%010d", (base+int64(i))%10_000_000_000),
		})
	}
	return actors
}
