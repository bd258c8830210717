package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Clinic API",
    "description": "Appointments, versioned medical reports and clinic administration.",
    "version": "1.0.0"
  },
  "basePath": "/api",
  "schemes": [
    "http",
    "https"
  ],
  "securityDefinitions": {
    "DoctorToken": {
      "type": "apiKey",
      "in": "header",
      "name": "dtoken"
    },
    "PatientToken": {
      "type": "apiKey",
      "in": "header",
      "name": "token"
    },
    "AdminToken": {
      "type": "apiKey",
      "in": "header",
      "name": "atoken"
    }
  },
  "tags": [
    {
      "name": "Authentication"
    },
    {
      "name": "Reports"
    },
    {
      "name": "Appointments"
    },
    {
      "name": "Profile"
    },
    {
      "name": "Admin"
    },
    {
      "name": "Doctors"
    }
  ],
  "paths": {
    "/user/register": {
      "post": {
        "tags": [
          "Authentication"
        ],
        "summary": "Register a patient account",
        "responses": {
          "201": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/RegisterRequest"
            }
          }
        ]
      }
    },
    "/user/login": {
      "post": {
        "tags": [
          "Authentication"
        ],
        "summary": "Patient login",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/LoginRequest"
            }
          }
        ]
      }
    },
    "/doctor/login": {
      "post": {
        "tags": [
          "Authentication"
        ],
        "summary": "Doctor login",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/LoginRequest"
            }
          }
        ]
      }
    },
    "/admin/login": {
      "post": {
        "tags": [
          "Authentication"
        ],
        "summary": "Admin login",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/LoginRequest"
            }
          }
        ]
      }
    },
    "/doctors": {
      "get": {
        "tags": [
          "Doctors"
        ],
        "summary": "Public doctor directory",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        }
      }
    },
    "/reports": {
      "post": {
        "tags": [
          "Reports"
        ],
        "summary": "Create a medical report",
        "responses": {
          "201": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/CreateReportRequest"
            }
          }
        ]
      }
    },
    "/reports/editing": {
      "get": {
        "tags": [
          "Reports"
        ],
        "summary": "Resolve the report editor context",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ],
        "parameters": [
          {
            "in": "query",
            "name": "patientId",
            "required": false,
            "type": "string"
          },
          {
            "in": "query",
            "name": "appointmentId",
            "required": false,
            "type": "string"
          }
        ]
      }
    },
    "/reports/patient/{patientId}": {
      "get": {
        "tags": [
          "Reports"
        ],
        "summary": "List a patient's reports, latest first",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "path",
            "name": "patientId",
            "required": true,
            "type": "string"
          }
        ]
      }
    },
    "/reports/{id}": {
      "get": {
        "tags": [
          "Reports"
        ],
        "summary": "Get a report with its references",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "path",
            "name": "id",
            "required": true,
            "type": "string"
          }
        ]
      },
      "put": {
        "tags": [
          "Reports"
        ],
        "summary": "Append a new report version",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/AppendVersionRequest"
            }
          },
          {
            "in": "path",
            "name": "id",
            "required": true,
            "type": "string"
          }
        ]
      }
    },
    "/reports/{id}/pdf": {
      "get": {
        "tags": [
          "Reports"
        ],
        "summary": "Download a report version as PDF",
        "responses": {
          "200": {
            "description": "File download",
            "schema": {
              "type": "file"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "path",
            "name": "id",
            "required": true,
            "type": "string"
          },
          {
            "in": "query",
            "name": "version",
            "required": false,
            "type": "integer"
          }
        ],
        "produces": [
          "application/pdf"
        ]
      }
    },
    "/user/book-appointment": {
      "post": {
        "tags": [
          "Appointments"
        ],
        "summary": "Book a doctor slot",
        "responses": {
          "201": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/BookAppointmentRequest"
            }
          }
        ]
      }
    },
    "/user/appointments": {
      "get": {
        "tags": [
          "Appointments"
        ],
        "summary": "List the calling patient's appointments",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "PatientToken": []
          }
        ]
      }
    },
    "/user/cancel-appointment": {
      "post": {
        "tags": [
          "Appointments"
        ],
        "summary": "Cancel an appointment",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "PatientToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/AppointmentActionRequest"
            }
          }
        ]
      }
    },
    "/user/get-profile": {
      "get": {
        "tags": [
          "Profile"
        ],
        "summary": "Get the patient profile",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "PatientToken": []
          }
        ]
      }
    },
    "/user/update-profile": {
      "post": {
        "tags": [
          "Profile"
        ],
        "summary": "Update the patient profile",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "PatientToken": []
          }
        ]
      }
    },
    "/doctor/appointments": {
      "get": {
        "tags": [
          "Appointments"
        ],
        "summary": "List the doctor's appointments",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ],
        "parameters": [
          {
            "in": "query",
            "name": "search",
            "required": false,
            "type": "string"
          }
        ]
      }
    },
    "/doctor/cancel-appointment": {
      "post": {
        "tags": [
          "Appointments"
        ],
        "summary": "Cancel an appointment",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/AppointmentActionRequest"
            }
          }
        ]
      }
    },
    "/doctor/complete-appointment": {
      "post": {
        "tags": [
          "Appointments"
        ],
        "summary": "Complete an appointment",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/AppointmentActionRequest"
            }
          }
        ]
      }
    },
    "/doctor/dashboard": {
      "get": {
        "tags": [
          "Appointments"
        ],
        "summary": "Doctor practice dashboard",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ]
      }
    },
    "/doctor/profile": {
      "get": {
        "tags": [
          "Profile"
        ],
        "summary": "Get the doctor profile",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ]
      }
    },
    "/doctor/update-profile": {
      "post": {
        "tags": [
          "Profile"
        ],
        "summary": "Update the doctor profile",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          }
        ]
      }
    },
    "/profile": {
      "get": {
        "tags": [
          "Profile"
        ],
        "summary": "Get the caller's profile",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ]
      },
      "put": {
        "tags": [
          "Profile"
        ],
        "summary": "Update the caller's profile",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "DoctorToken": []
          },
          {
            "PatientToken": []
          }
        ]
      }
    },
    "/admin/dashboard": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "Clinic dashboard",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ]
      }
    },
    "/admin/add-doctor": {
      "post": {
        "tags": [
          "Admin"
        ],
        "summary": "Onboard a doctor (multipart)",
        "responses": {
          "201": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ]
      }
    },
    "/admin/change-availability": {
      "post": {
        "tags": [
          "Admin"
        ],
        "summary": "Toggle doctor availability",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/ChangeAvailabilityRequest"
            }
          }
        ]
      }
    },
    "/admin/all-doctors": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "List doctor accounts",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ]
      }
    },
    "/admin/users": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "List patient accounts",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ]
      }
    },
    "/admin/users/{id}": {
      "delete": {
        "tags": [
          "Admin"
        ],
        "summary": "Delete a patient account",
        "responses": {
          "204": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "path",
            "name": "id",
            "required": true,
            "type": "string"
          }
        ]
      }
    },
    "/admin/doctor/{id}": {
      "delete": {
        "tags": [
          "Admin"
        ],
        "summary": "Delete a doctor account",
        "responses": {
          "204": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "path",
            "name": "id",
            "required": true,
            "type": "string"
          }
        ]
      }
    },
    "/admin/appointments": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "List every appointment",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "query",
            "name": "search",
            "required": false,
            "type": "string"
          }
        ]
      }
    },
    "/admin/cancel-appointment": {
      "post": {
        "tags": [
          "Admin"
        ],
        "summary": "Cancel an appointment",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "body",
            "name": "payload",
            "required": true,
            "schema": {
              "$ref": "#/definitions/AppointmentActionRequest"
            }
          }
        ]
      }
    },
    "/admin/reports": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "List all reports",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "query",
            "name": "patientId",
            "required": false,
            "type": "string"
          },
          {
            "in": "query",
            "name": "doctorId",
            "required": false,
            "type": "string"
          },
          {
            "in": "query",
            "name": "page",
            "required": false,
            "type": "integer"
          },
          {
            "in": "query",
            "name": "pageSize",
            "required": false,
            "type": "integer"
          }
        ]
      }
    },
    "/admin/reports/export": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "Export reports",
        "responses": {
          "200": {
            "description": "File download",
            "schema": {
              "type": "file"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "query",
            "name": "format",
            "required": false,
            "type": "string"
          }
        ],
        "produces": [
          "application/octet-stream"
        ]
      }
    },
    "/admin/reports/{id}": {
      "get": {
        "tags": [
          "Admin"
        ],
        "summary": "Get any report",
        "responses": {
          "200": {
            "description": "OK",
            "schema": {
              "$ref": "#/definitions/ResponseEnvelope"
            }
          },
          "401": {
            "description": "not authorized, login again"
          }
        },
        "security": [
          {
            "AdminToken": []
          }
        ],
        "parameters": [
          {
            "in": "path",
            "name": "id",
            "required": true,
            "type": "string"
          }
        ]
      }
    }
  },
  "definitions": {
    "LoginRequest": {
      "type": "object",
      "required": [
        "email",
        "password"
      ],
      "properties": {
        "email": {
          "type": "string"
        },
        "password": {
          "type": "string"
        }
      }
    },
    "RegisterRequest": {
      "type": "object",
      "required": [
        "name",
        "email",
        "password"
      ],
      "properties": {
        "name": {
          "type": "string"
        },
        "email": {
          "type": "string"
        },
        "password": {
          "type": "string",
          "minLength": 8
        }
      }
    },
    "CreateReportRequest": {
      "type": "object",
      "required": [
        "patientId",
        "appointmentId"
      ],
      "properties": {
        "patientId": {
          "type": "string"
        },
        "appointmentId": {
          "type": "string"
        },
        "status": {
          "type": "object",
          "additionalProperties": {
            "type": "string"
          }
        },
        "description": {
          "type": "string"
        }
      }
    },
    "AppendVersionRequest": {
      "type": "object",
      "properties": {
        "status": {
          "type": "object",
          "additionalProperties": {
            "type": "string"
          }
        },
        "description": {
          "type": "string"
        }
      }
    },
    "BookAppointmentRequest": {
      "type": "object",
      "required": [
        "doctorId",
        "slotDate",
        "slotTime"
      ],
      "properties": {
        "doctorId": {
          "type": "string"
        },
        "slotDate": {
          "type": "string",
          "format": "date"
        },
        "slotTime": {
          "type": "string"
        }
      }
    },
    "AppointmentActionRequest": {
      "type": "object",
      "required": [
        "appointmentId"
      ],
      "properties": {
        "appointmentId": {
          "type": "string"
        }
      }
    },
    "ChangeAvailabilityRequest": {
      "type": "object",
      "required": [
        "doctorId"
      ],
      "properties": {
        "doctorId": {
          "type": "string"
        }
      }
    },
    "Pagination": {
      "type": "object",
      "properties": {
        "page": {
          "type": "integer"
        },
        "pageSize": {
          "type": "integer"
        },
        "totalCount": {
          "type": "integer"
        }
      }
    },
    "APIError": {
      "type": "object",
      "properties": {
        "code": {
          "type": "string"
        },
        "message": {
          "type": "string"
        },
        "status": {
          "type": "integer"
        }
      }
    },
    "ResponseEnvelope": {
      "type": "object",
      "properties": {
        "success": {
          "type": "boolean"
        },
        "message": {
          "type": "string"
        },
        "data": {
          "type": "object"
        },
        "error": {
          "$ref": "#/definitions/APIError"
        },
        "pagination": {
          "$ref": "#/definitions/Pagination"
        },
        "meta": {
          "type": "object"
        }
      }
    }
  }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
