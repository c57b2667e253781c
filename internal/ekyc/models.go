// Package ekyc integrates with the government eKYC OTP provider. It owns the
// provider wire format, access token caching, and the classification of the
// provider's free-text rejections into stable error kinds.
package ekyc

// OTPReceipt is the result of a successful OTP generation request.
type OTPReceipt struct {
	ReferenceID string
	Message     string
}

// Address is the structured address block returned on successful verification.
type Address struct {
	House       string `json:"house"`
	Landmark    string `json:"landmark"`
	Street      string `json:"street"`
	Subdistrict string `json:"subdistrict"`
	VTC         string `json:"vtc"`
	District    string `json:"district"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	PostOffice  string `json:"post_office"`
	Country     string `json:"country"`
}

// IdentityPayload is the verified identity data returned by the provider
// after a successful OTP verification.
type IdentityPayload struct {
	Name        string  `json:"name"`
	CareOf      string  `json:"care_of"`
	DateOfBirth string  `json:"date_of_birth"`
	YearOfBirth int     `json:"year_of_birth"`
	Gender      string  `json:"gender"`
	Photo       string  `json:"photo"`
	FullAddress string  `json:"full_address"`
	Address     Address `json:"address"`
}

// VerifyResult is the outcome of a successful OTP verification call.
type VerifyResult struct {
	Message  string
	Identity IdentityPayload
}
