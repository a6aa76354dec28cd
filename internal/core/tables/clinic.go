package tables

// Registration order is import order. A table may only reference tables
// registered before it, or itself.

func registerReference() {
	scoped("clinic_settings", nil, nil)
	scoped("employers", []string{"name"}, nil)
	scoped("unions", []string{"name"}, nil)
	scoped("insurance_plans", []string{"name"}, nil)
	scoped("specialties", []string{"name"}, nil)
	scoped("services", []string{"name"}, fk("specialty_id", "specialties"))
	scoped("rooms", []string{"name"}, nil)
}

func registerStaff() {
	scoped("staff_members", []string{"full_name"}, nil)
	scoped("doctors", []string{"full_name"}, fk("staff_member_id", "staff_members"))
	child("doctor_specialties", []string{"doctor_id", "specialty_id"}, fk(
		"doctor_id", "doctors",
		"specialty_id", "specialties",
	))
	scoped("doctor_schedules", []string{"doctor_id", "day_of_week"}, fk(
		"doctor_id", "doctors",
		"room_id", "rooms",
	))
}

func registerPatients() {
	scoped("patients", []string{"first_name", "last_name"}, fk(
		"employer_id", "employers",
		"insurance_plan_id", "insurance_plans",
		"primary_doctor_id", "doctors",
		"referred_by_id", "patients",
	))
	scoped("patient_contacts", []string{"patient_id", "name"}, fk("patient_id", "patients"))
	scoped("medical_histories", []string{"patient_id"}, fk(
		"patient_id", "patients",
		"recorded_by_id", "doctors",
	))
	scoped("allergies", []string{"patient_id", "allergen"}, fk("patient_id", "patients"))
	scoped("patient_documents", []string{"patient_id", "file_name"}, fk("patient_id", "patients"))
	scoped("union_memberships", []string{"patient_id", "union_id"}, fk(
		"patient_id", "patients",
		"union_id", "unions",
		"employer_id", "employers",
	))
	scoped("membership_fees", []string{"membership_id", "amount"}, fk("membership_id", "union_memberships"))
}

func registerClinical() {
	scoped("appointments", []string{"patient_id", "scheduled_at"}, fk(
		"patient_id", "patients",
		"doctor_id", "doctors",
		"room_id", "rooms",
		"service_id", "services",
		"rescheduled_from_id", "appointments",
		"cancelled_by", "staff_members",
	))
	scoped("consultations", []string{"patient_id"}, fk(
		"patient_id", "patients",
		"doctor_id", "doctors",
		"appointment_id", "appointments",
	))
	scoped("diagnoses", []string{"consultation_id", "description"}, fk(
		"consultation_id", "consultations",
		"patient_id", "patients",
	))
	scoped("prescriptions", []string{"patient_id"}, fk(
		"patient_id", "patients",
		"doctor_id", "doctors",
		"consultation_id", "consultations",
	))
	child("prescription_items", []string{"prescription_id", "medication"}, fk("prescription_id", "prescriptions"))
	scoped("lab_orders", []string{"patient_id", "test_name"}, fk(
		"patient_id", "patients",
		"doctor_id", "doctors",
		"consultation_id", "consultations",
	))
	child("lab_results", []string{"lab_order_id"}, fk("lab_order_id", "lab_orders"))
	scoped("vaccinations", []string{"patient_id", "vaccine"}, fk(
		"patient_id", "patients",
		"administered_by_id", "staff_members",
	))
	scoped("certificates", []string{"patient_id", "certificate_type"}, fk(
		"patient_id", "patients",
		"doctor_id", "doctors",
		"consultation_id", "consultations",
	))
	scoped("clinical_notes", []string{"patient_id", "body"}, fk(
		"patient_id", "patients",
		"doctor_id", "doctors",
		"consultation_id", "consultations",
	))
}

func registerBilling() {
	scoped("invoices", []string{"patient_id", "total"}, fk(
		"patient_id", "patients",
		"appointment_id", "appointments",
		"insurance_plan_id", "insurance_plans",
		"union_membership_id", "union_memberships",
	))
	child("invoice_items", []string{"invoice_id", "description"}, fk(
		"invoice_id", "invoices",
		"service_id", "services",
	))
	scoped("payments", []string{"invoice_id", "amount"}, fk(
		"invoice_id", "invoices",
		"patient_id", "patients",
		"received_by_id", "staff_members",
	))
	scoped("expenses", []string{"description", "amount"}, fk("paid_by_id", "staff_members"))
}

func registerOperations() {
	scoped("inventory_items", []string{"name"}, nil)
	scoped("inventory_movements", []string{"item_id", "quantity"}, fk(
		"item_id", "inventory_items",
		"staff_member_id", "staff_members",
	))
	scoped("reminders", nil, fk(
		"patient_id", "patients",
		"appointment_id", "appointments",
	))
	scoped("message_logs", []string{"channel"}, fk(
		"patient_id", "patients",
		"reminder_id", "reminders",
	))
	scoped("report_templates", []string{"name"}, nil)
}
